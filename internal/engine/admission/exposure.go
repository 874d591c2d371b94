package admission

import (
	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// Exposure is the derived portfolio view the cap checks run against.
// Recomputed on demand from the open positions, never stored.
type Exposure struct {
	UnitsByMarket map[string]int
	UnitsByGroup  map[string]int
	TotalUnits    int
	TotalRiskPct  decimal.Decimal
}

// ComputeExposure folds open positions into unit counts per market, per
// correlation group, and in total, plus the summed admission-time risk.
// groups maps market to its correlation group; ungrouped markets count only
// toward their own market and the totals.
func ComputeExposure(open []*models.Position, groups map[string]string) Exposure {
	ex := Exposure{
		UnitsByMarket: make(map[string]int),
		UnitsByGroup:  make(map[string]int),
		TotalRiskPct:  decimal.Zero,
	}
	for _, p := range open {
		if p.Status != models.PositionOpen {
			continue
		}
		n := len(p.Units)
		ex.UnitsByMarket[p.Market] += n
		if g, ok := groups[p.Market]; ok {
			ex.UnitsByGroup[g] += n
		}
		ex.TotalUnits += n
		ex.TotalRiskPct = ex.TotalRiskPct.Add(p.TotalRiskPct())
	}
	return ex
}
