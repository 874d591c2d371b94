package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	xhttp "github.com/bwight-dev/turtle-trader-sub001/pkg/http"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// History fetches daily candles over REST to warm up the channel and
// volatility state before the first live cycle.
type History struct {
	client  *xhttp.Client
	baseURL string
	apiKey  string
	log     *logger.Logger
}

// NewHistory creates a history fetcher.
func NewHistory(client *xhttp.Client, baseURL, apiKey string, log *logger.Logger) *History {
	return &History{client: client, baseURL: baseURL, apiKey: apiKey, log: log}
}

// Candle response in the columnar vendor format. Fields decode via
// json.Number so prices survive as exact decimals.
type candleResponse struct {
	Status string        `json:"s"`
	Open   []json.Number `json:"o"`
	High   []json.Number `json:"h"`
	Low    []json.Number `json:"l"`
	Close  []json.Number `json:"c"`
	Time   []int64       `json:"t"` // unix seconds
}

// DailyBars fetches the trailing `days` daily bars for one market, oldest
// first.
func (h *History) DailyBars(ctx context.Context, market string, days int) ([]models.Bar, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days*2) // calendar margin for non-trading days

	var resp candleResponse
	err := h.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    h.baseURL + "/candle",
		QueryParams: map[string][]string{
			"symbol":     {market},
			"resolution": {"D"},
			"from":       {strconv.FormatInt(from.Unix(), 10)},
			"to":         {strconv.FormatInt(to.Unix(), 10)},
			"token":      {h.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch candles %s: %w", market, err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("candles %s: vendor status %q", market, resp.Status)
	}
	n := len(resp.Time)
	if len(resp.Open) != n || len(resp.High) != n || len(resp.Low) != n || len(resp.Close) != n {
		return nil, fmt.Errorf("candles %s: ragged columns", market)
	}

	bars := make([]models.Bar, 0, n)
	for i := 0; i < n; i++ {
		bar, err := columnarBar(market, resp, i)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	h.log.Info("history loaded",
		logger.String("market", market),
		logger.Int("bars", len(bars)))
	return bars, nil
}

func columnarBar(market string, resp candleResponse, i int) (models.Bar, error) {
	parse := func(col string, v json.Number) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("candles %s: bad %s at %d: %w", market, col, i, err)
		}
		return d, nil
	}
	open, err := parse("open", resp.Open[i])
	if err != nil {
		return models.Bar{}, err
	}
	high, err := parse("high", resp.High[i])
	if err != nil {
		return models.Bar{}, err
	}
	low, err := parse("low", resp.Low[i])
	if err != nil {
		return models.Bar{}, err
	}
	closeP, err := parse("close", resp.Close[i])
	if err != nil {
		return models.Bar{}, err
	}
	return models.Bar{
		Market: market,
		Date:   time.Unix(resp.Time[i], 0).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closeP,
	}, nil
}
