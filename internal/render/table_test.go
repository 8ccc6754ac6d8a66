package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optyield/optyield/internal/chain"
	"github.com/optyield/optyield/internal/scan"
)

func TestReportFormatsRowsAndBest(t *testing.T) {
	rep := &scan.Report{
		Rows: []scan.Row{
			{Expiration: "2025-01-17", Metrics: chain.Metrics{
				Strike: 170, Premium: 2.5, Capital: 170, DaysToExpiry: 7,
				AnnualizedReturnPct: 76.68, MoneynessPct: 9.3,
			}},
		},
	}
	rep.Best = &rep.Rows[0]

	var buf bytes.Buffer
	Report(&buf, 170, rep)

	out := buf.String()
	assert.Contains(t, out, "2025-01-17")
	assert.Contains(t, out, "$2.50")
	assert.Contains(t, out, "76.68%")
	assert.Contains(t, out, "Best: 2025-01-17")
}

func TestReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, 170, &scan.Report{})
	assert.Contains(t, buf.String(), "No contracts found for strike $170.00")
}

func TestSeekMarksPartialResultsOnRateLimit(t *testing.T) {
	rep := &scan.SeekReport{
		Results: []scan.SeekResult{
			{Expiration: "2025-01-17", SafetyGap: 0.2, Metrics: chain.Metrics{
				Strike: 80, Premium: 1.0, DaysToExpiry: 10, AnnualizedReturnPct: 45.6, ImpliedVolatility: 0.5,
			}},
		},
		RateLimited: true,
	}

	var buf bytes.Buffer
	Seek(&buf, 15, rep)

	out := buf.String()
	assert.Contains(t, out, "$80.0")
	assert.Contains(t, out, "20.0%")
	assert.Contains(t, out, "rate limit")
}
