// Package scan implements the two evaluation pipelines over an option chain
// provider: a fixed-strike time-series report and a best-qualifying-strike
// search. Both iterate expirations sequentially in the order supplied
// (chronological) and record a per-expiration outcome the shell can fold
// into progress output.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/optyield/optyield/internal/chain"
	"github.com/optyield/optyield/internal/market"
)

// ChainFetcher is the slice of market.Provider the pipelines consume.
type ChainFetcher interface {
	GetChain(ctx context.Context, ticker, expiration string, side chain.Side) ([]chain.Quote, error)
}

// Status tags the terminal state of one expiration's scan.
type Status string

const (
	// StatusNormalized: chain fetched, target row derived (reporter).
	StatusNormalized Status = "normalized"
	// StatusSelected: a qualifying strike was chosen (seeker).
	StatusSelected Status = "selected"
	// StatusNoQualifier: chain scanned, nothing met the yield threshold.
	StatusNoQualifier Status = "no_qualifier"
	// StatusSkippedNoData: no matching contract or an empty chain.
	StatusSkippedNoData Status = "skipped_no_data"
	// StatusSkippedError: transient fetch failure, expiration skipped.
	StatusSkippedError Status = "skipped_error"
	// StatusRateLimited: provider throttled us; the whole scan stopped here.
	StatusRateLimited Status = "rate_limited"
)

// Outcome records what happened to one expiration during a scan.
type Outcome struct {
	Expiration string `json:"expiration"`
	Status     Status `json:"status"`
	Err        error  `json:"-"`
}

// Scanner runs the evaluation pipelines against a chain fetcher. The clock
// is a field so tests can pin days-to-expiry computations.
type Scanner struct {
	fetcher ChainFetcher
	now     func() time.Time
}

func New(fetcher ChainFetcher) *Scanner {
	return &Scanner{
		fetcher: fetcher,
		now:     time.Now,
	}
}

// daysToExpiry computes the whole days between now and the expiration date,
// clamped to a minimum of 1 so same-day and already-elapsed expirations never
// divide by zero.
func (s *Scanner) daysToExpiry(expiration string) (int, error) {
	exp, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return 0, fmt.Errorf("bad expiration date %q: %w", expiration, err)
	}
	dte := int(exp.Sub(s.now()).Hours() / 24)
	if dte < 1 {
		dte = 1
	}
	return dte, nil
}

// withinHorizon applies the time-horizon bound: months are approximated as
// 30 days each, not calendar months. A zero horizon means unbounded.
func withinHorizon(dte, horizonMonths int) bool {
	return horizonMonths <= 0 || dte <= horizonMonths*30
}

// limitExpirations bounds how many expirations a scan touches. Zero means all.
func limitExpirations(expirations []string, max int) []string {
	if max > 0 && len(expirations) > max {
		return expirations[:max]
	}
	return expirations
}

func validateSpot(spot float64) error {
	if spot <= 0 {
		return fmt.Errorf("%w: spot price must be positive, got %.4f", chain.ErrInvalidInput, spot)
	}
	return nil
}

// isRateLimit reports whether err is the provider throttling signal.
func isRateLimit(err error) bool {
	return errors.Is(err, market.ErrRateLimited)
}
