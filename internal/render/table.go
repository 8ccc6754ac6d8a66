// Package render turns scan results into terminal tables. All currency and
// percentage formatting lives here; the core hands over plain numbers.
package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/optyield/optyield/internal/scan"
)

// Report writes the fixed-strike time series as a table, followed by the
// best-expiration recommendation.
func Report(w io.Writer, strike float64, rep *scan.Report) {
	if len(rep.Rows) == 0 {
		fmt.Fprintf(w, "No contracts found for strike $%.2f.\n", strike)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Expiration", "DTE", "Premium", "Safety", "APY"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetColumnSeparator("")
	for _, row := range rep.Rows {
		table.Append([]string{
			row.Expiration,
			fmt.Sprintf("%d", row.DaysToExpiry),
			fmt.Sprintf("$%.2f", row.Premium),
			fmt.Sprintf("%.1f%%", row.MoneynessPct),
			fmt.Sprintf("%.2f%%", row.AnnualizedReturnPct),
		})
	}
	table.Render()

	if rep.Best != nil {
		fmt.Fprintf(w, "Best: %s at $%.2f premium, %.2f%% annualized\n",
			rep.Best.Expiration, rep.Best.Premium, rep.Best.AnnualizedReturnPct)
	}
	if rep.RateLimited {
		fmt.Fprintln(w, "Provider rate limit hit - results are partial, wait a bit and retry.")
	}
}

// Seek writes the per-expiration best-strike picks as a table.
func Seek(w io.Writer, minReturnPct float64, rep *scan.SeekReport) {
	if len(rep.Results) == 0 && !rep.RateLimited {
		fmt.Fprintf(w, "No contracts met the %.1f%% annualized threshold. Lower the target or pick a more volatile underlying.\n", minReturnPct)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Expiration", "DTE", "Strike", "IV", "Premium", "APY", "Safety Gap"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetColumnSeparator("")
	for _, res := range rep.Results {
		table.Append([]string{
			res.Expiration,
			fmt.Sprintf("%d", res.DaysToExpiry),
			fmt.Sprintf("$%.1f", res.Strike),
			fmt.Sprintf("%.1f%%", res.ImpliedVolatility*100),
			fmt.Sprintf("$%.2f", res.Premium),
			fmt.Sprintf("%.2f%%", res.AnnualizedReturnPct),
			fmt.Sprintf("%.1f%%", res.SafetyGap*100),
		})
	}
	table.Render()

	fmt.Fprintf(w, "Found %d expiration(s) with a qualifying strike.\n", len(rep.Results))
	if rep.RateLimited {
		fmt.Fprintln(w, "Provider rate limit hit - results are partial, wait a bit and retry.")
	}
}

// Progress writes one line per scanned expiration, folding the scan outcomes
// into something readable while a paced scan crawls along.
func Progress(w io.Writer, outcomes []scan.Outcome) {
	for _, o := range outcomes {
		switch o.Status {
		case scan.StatusNormalized, scan.StatusSelected:
			fmt.Fprintf(w, "  %s: ok\n", o.Expiration)
		case scan.StatusNoQualifier:
			fmt.Fprintf(w, "  %s: no strike met the threshold\n", o.Expiration)
		case scan.StatusSkippedNoData:
			fmt.Fprintf(w, "  %s: no usable quotes\n", o.Expiration)
		case scan.StatusSkippedError:
			fmt.Fprintf(w, "  %s: fetch failed, skipped\n", o.Expiration)
		case scan.StatusRateLimited:
			fmt.Fprintf(w, "  %s: rate limited, scan stopped\n", o.Expiration)
		}
	}
}
