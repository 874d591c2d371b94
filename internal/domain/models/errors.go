package models

import "errors"

var (
	// ErrInsufficientHistory means a market's warm-up window is not yet
	// filled. Non-fatal: the market is skipped for the cycle and retried
	// once more history accumulates.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrUnknownMarket means a price, fill, or bar referenced a market the
	// engine has no configuration for.
	ErrUnknownMarket = errors.New("unknown market")

	// ErrInconsistentState means the engine was handed data it has no
	// record for (e.g. a fill for an unknown position). Fatal for that
	// market's processing this cycle; never reconciled by guessing.
	ErrInconsistentState = errors.New("inconsistent state")

	// ErrInvariantViolation means a numeric invariant broke (negative N,
	// non-monotonic high-water mark). Fatal: upstream data corruption must
	// not propagate into sizing.
	ErrInvariantViolation = errors.New("numeric invariant violation")
)
