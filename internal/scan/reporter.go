package scan

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/optyield/optyield/internal/chain"
)

// ReportParams configures a fixed-strike report.
type ReportParams struct {
	Ticker string
	Side   chain.Side
	// Strike is matched exactly against chain rows; no nearest-strike
	// fallback. The caller passes the float the provider listed.
	Strike float64
	Spot   float64
	// HorizonMonths bounds expirations to months*30 days. 0 = unbounded.
	HorizonMonths int
	// MaxExpirations bounds how many expirations are scanned. 0 = all.
	MaxExpirations int
}

// Row is one expiration's derived metrics for the target strike.
type Row struct {
	Expiration string `json:"expiration"`
	chain.Metrics
}

// Report is the fixed-strike time series. Best is nil when no expiration
// carried the target strike; that is "no contracts found", not an error.
type Report struct {
	Rows        []Row
	Best        *Row
	Outcomes    []Outcome
	RateLimited bool
}

// Report walks the expirations chronologically, locates the target strike in
// each chain and derives its metrics in lenient mode (bidless quotes fall
// back to the last traded price, so the report shows whatever is available).
//
// Transient fetch failures skip that expiration; the report succeeds with
// partial rows. A rate-limit signal stops the remaining scan and returns the
// rows collected so far with RateLimited set.
func (s *Scanner) Report(ctx context.Context, expirations []string, p ReportParams) (*Report, error) {
	if err := validateSpot(p.Spot); err != nil {
		return nil, err
	}

	rep := &Report{}
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
			log.WithField("expiration", expiration).Warn("provider rate limit hit, stopping report scan")
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusRateLimited, err})
			rep.RateLimited = true
			break
		}
		if err != nil {
			log.WithError(err).WithField("expiration", expiration).Debug("skipping expiration after fetch error")
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusSkippedError, err})
			continue
		}

		var target []chain.Quote
		for _, q := range quotes {
			if q.Strike == p.Strike {
				target = append(target, q)
				break
			}
		}
		if len(target) == 0 {
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusSkippedNoData, nil})
			continue
		}

		rows, err := chain.Normalize(target, p.Side, p.Spot, dte, chain.Lenient)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusSkippedNoData, nil})
			continue
		}

		rep.Rows = append(rep.Rows, Row{Expiration: expiration, Metrics: rows[0]})
		rep.Outcomes = append(rep.Outcomes, Outcome{expiration, StatusNormalized, nil})
	}

	// Best pays the most per year of capital tied up. Rows are chronological,
	// so a strictly-greater comparison breaks ties toward the earlier date.
	for i := range rep.Rows {
		if rep.Best == nil || rep.Rows[i].AnnualizedReturnPct > rep.Best.AnnualizedReturnPct {
			rep.Best = &rep.Rows[i]
		}
	}
	return rep, nil
}
