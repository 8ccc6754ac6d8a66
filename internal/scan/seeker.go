package scan

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/optyield/optyield/internal/chain"
)

// SeekParams configures a best-strike search.
type SeekParams struct {
	Ticker string
	Side   chain.Side
	Spot   float64
	// MinAnnualReturnPct is the qualification threshold, e.g. 15 for 15%.
	MinAnnualReturnPct float64
	// HorizonMonths bounds expirations to months*30 days. 0 = unbounded.
	HorizonMonths int
	// MaxExpirations bounds how many expirations are scanned. 0 = all.
	MaxExpirations int
}

// SeekResult is the safest qualifying contract for one expiration.
type SeekResult struct {
	Expiration string `json:"expiration"`
	chain.Metrics
	// SafetyGap is the chosen strike's distance from spot as a fraction of
	// spot, signed like moneyness (positive = out-of-the-money).
	SafetyGap float64 `json:"safety_gap"`
}

// SeekReport collects per-expiration picks. RateLimited marks a scan the
// provider cut short; Results still holds everything gathered before the
// signal.
type SeekReport struct {
	Results     []SeekResult
	Outcomes    []Outcome
	RateLimited bool
}

// Seek scans each expiration's full chain for the safest strike that still
// clears the yield threshold. Filtering is strict: only contracts with a
// live bid are considered trade-able.
//
// Safety maximization per side: selling puts, the lowest qualifying strike
// sits furthest below spot; selling calls, the highest sits furthest above.
// The sorts are stable, so equal strikes resolve to first-encountered chain
// order.
func (s *Scanner) Seek(ctx context.Context, expirations []string, p SeekParams) (*SeekReport, error) {
	if err := validateSpot(p.Spot); err != nil {
		return nil, err
	}

	rep := &SeekReport{}
	for _, expiration := range limitExpirations(expirations, p.MaxExpirations) {
		dte, err := s.daysToExpiry(expiration)
		if err != nil {
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusSkippedError, err})
			continue
		}
		if !withinHorizon(dte, p.HorizonMonths) {
			continue
		}

		quotes, err := s.fetcher.GetChain(ctx, p.Ticker, expiration, p.Side)
		if isRateLimit(err) {
			log.WithField("expiration", expiration).Warn("provider rate limit hit, stopping seek scan")
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusRateLimited, err})
			rep.RateLimited = true
			break
		}
		if err != nil {
			log.WithError(err).WithField("expiration", expiration).Debug("skipping expiration after fetch error")
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusSkippedError, err})
			continue
		}

		rows, err := chain.Normalize(quotes, p.Side, p.Spot, dte, chain.Strict)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusSkippedNoData, nil})
			continue
		}

		var qualified []chain.Metrics
		for _, m := range rows {
			if m.AnnualizedReturnPct >= p.MinAnnualReturnPct {
				qualified = append(qualified, m)
			}
		}
		if len(qualified) == 0 {
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusNoQualifier, nil})
			continue
		}

		sort.SliceStable(qualified, func(i, j int) bool {
			if p.Side == chain.Put {
				return qualified[i].Strike < qualified[j].Strike
			}
			return qualified[i].Strike > qualified[j].Strike
		})
		pick := qualified[0]

		rep.Results = append(rep.Results, SeekResult{
			Expiration: expiration,
			Metrics:    pick,
			SafetyGap:  pick.MoneynessPct / 100,
		})
		rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusSelected, nil})
	}
	return rep, nil
}
