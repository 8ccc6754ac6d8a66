package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optyield/optyield/internal/chain"
	"github.com/optyield/optyield/internal/market"
)

// fakeFetcher serves canned chains per expiration and records call order.
type fakeFetcher struct {
	chains map[string][]chain.Quote
	errs   map[string]error
	calls  []string
}

func (f *fakeFetcher) GetChain(_ context.Context, _, expiration string, _ chain.Side) ([]chain.Quote, error) {
	f.calls = append(f.calls, expiration)
	if err := f.errs[expiration]; err != nil {
		return nil, err
	}
	return f.chains[expiration], nil
}

// newTestScanner pins the clock to 2025-01-10 so expiration strings map to
// deterministic days-to-expiry.
func newTestScanner(f ChainFetcher) *Scanner {
	s := New(f)
	s.now = func() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) }
	return s
}

func putQuote(strike, premium float64) chain.Quote {
	return chain.Quote{Strike: strike, Bid: premium - 0.1, Ask: premium + 0.1, LastPrice: premium}
}

func TestReportBuildsChronologicalRowsAndBest(t *testing.T) {
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-20": {putQuote(85, 0.4), putQuote(90, 1.0)}, // dte 10
		"2025-02-09": {putQuote(90, 2.0)},                    // dte 30
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20", "2025-02-09"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100,
	})
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)

	assert.Equal(t, "2025-01-20", rep.Rows[0].Expiration)
	assert.Equal(t, 10, rep.Rows[0].DaysToExpiry)
	assert.InDelta(t, 40.56, rep.Rows[0].AnnualizedReturnPct, 0.01)

	assert.Equal(t, "2025-02-09", rep.Rows[1].Expiration)
	assert.InDelta(t, 27.04, rep.Rows[1].AnnualizedReturnPct, 0.01)

	require.NotNil(t, rep.Best)
	assert.Equal(t, "2025-01-20", rep.Best.Expiration)
	assert.Equal(t, []string{"2025-01-20", "2025-02-09"}, f.calls)
}

func TestReportBestTieBreaksToEarlierExpiration(t *testing.T) {
	// premium doubles with a doubled dte, so both rows annualize to exactly
	// the same value (scaling by two is lossless in float64)
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-20": {{Strike: 90, Bid: 1.0, Ask: 1.0}}, // dte 10
		"2025-01-30": {{Strike: 90, Bid: 2.0, Ask: 2.0}}, // dte 20
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20", "2025-01-30"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100,
	})
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, rep.Rows[0].AnnualizedReturnPct, rep.Rows[1].AnnualizedReturnPct)

	require.NotNil(t, rep.Best)
	assert.Equal(t, "2025-01-20", rep.Best.Expiration)
}

func TestReportNoMatchingStrikeIsNotAnError(t *testing.T) {
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-20": {putQuote(85, 0.4)},
		"2025-02-09": {putQuote(95, 2.5)},
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20", "2025-02-09"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 170, Spot: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, rep.Rows)
	assert.Nil(t, rep.Best)
	for _, o := range rep.Outcomes {
		assert.Equal(t, StatusSkippedNoData, o.Status)
	}
}

func TestReportRequiresExactStrikeEquality(t *testing.T) {
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-20": {putQuote(89.5, 1.0), putQuote(90.5, 1.1)},
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100,
	})
	require.NoError(t, err)
	assert.Empty(t, rep.Rows) // no nearest-match fallback
}

func TestReportHorizonUsesThirtyDayMonths(t *testing.T) {
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-20": {putQuote(90, 1.0)}, // dte 10
		"2025-02-09": {putQuote(90, 2.0)}, // dte 30, boundary: included
		"2025-03-11": {putQuote(90, 3.0)}, // dte 60, beyond horizon
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20", "2025-02-09", "2025-03-11"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100, HorizonMonths: 1,
	})
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "2025-02-09", rep.Rows[1].Expiration)
	// expirations beyond the horizon are never fetched
	assert.NotContains(t, f.calls, "2025-03-11")
}

func TestReportSwallowsTransientFetchErrors(t *testing.T) {
	f := &fakeFetcher{
		chains: map[string][]chain.Quote{
			"2025-01-20": {putQuote(90, 1.0)},
			"2025-03-11": {putQuote(90, 3.0)},
		},
		errs: map[string]error{"2025-02-09": errors.New("connection reset")},
	}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20", "2025-02-09", "2025-03-11"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100,
	})
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "2025-01-20", rep.Rows[0].Expiration)
	assert.Equal(t, "2025-03-11", rep.Rows[1].Expiration)

	require.Len(t, rep.Outcomes, 3)
	assert.Equal(t, StatusSkippedError, rep.Outcomes[1].Status)
}

func TestReportStopsOnRateLimit(t *testing.T) {
	f := &fakeFetcher{
		chains: map[string][]chain.Quote{
			"2025-01-20": {putQuote(90, 1.0)},
			"2025-03-11": {putQuote(90, 3.0)},
		},
		errs: map[string]error{"2025-02-09": market.ErrRateLimited},
	}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20", "2025-02-09", "2025-03-11"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100,
	})
	require.NoError(t, err)
	assert.True(t, rep.RateLimited)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "2025-01-20", rep.Rows[0].Expiration)
	assert.NotContains(t, f.calls, "2025-03-11")
}

func TestReportUsesLenientLiquidityFiltering(t *testing.T) {
	// no bid, no ask: the report still shows the row via the last price
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-20": {{Strike: 90, Bid: 0, Ask: 0, LastPrice: 0.8}},
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100,
	})
	require.NoError(t, err)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, 0.8, rep.Rows[0].Premium)
}

func TestReportClampsElapsedExpirationToOneDay(t *testing.T) {
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-09": {putQuote(90, 1.0)}, // yesterday relative to the pinned clock
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-09"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100,
	})
	require.NoError(t, err)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, 1, rep.Rows[0].DaysToExpiry)
}

func TestReportLimitsExpirationCount(t *testing.T) {
	f := &fakeFetcher{chains: map[string][]chain.Quote{
		"2025-01-20": {putQuote(90, 1.0)},
		"2025-02-09": {putQuote(90, 2.0)},
		"2025-03-11": {putQuote(90, 3.0)},
	}}
	s := newTestScanner(f)

	rep, err := s.Report(context.Background(), []string{"2025-01-20", "2025-02-09", "2025-03-11"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 100, MaxExpirations: 2,
	})
	require.NoError(t, err)
	assert.Len(t, rep.Rows, 2)
	assert.Len(t, f.calls, 2)
}

func TestReportRejectsBadSpot(t *testing.T) {
	s := newTestScanner(&fakeFetcher{})

	_, err := s.Report(context.Background(), []string{"2025-01-20"}, ReportParams{
		Ticker: "NVDA", Side: chain.Put, Strike: 90, Spot: 0,
	})
	assert.ErrorIs(t, err, chain.ErrInvalidInput)
}
