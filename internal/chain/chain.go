// Package chain normalizes raw option chain quotes into per-contract yield
// metrics for option sellers. All functions are pure; nothing here fetches,
// caches or formats.
package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks inputs that would make the yield math meaningless
// (non-positive spot price, days to expiry below one). Callers should treat
// it as fatal for the whole evaluation rather than skip-and-continue.
var ErrInvalidInput = errors.New("invalid input")

// Side selects which half of the chain is read and how capital and
// moneyness are computed.
type Side int

const (
	// Put evaluates cash-secured puts: capital is the strike.
	Put Side = iota
	// Call evaluates covered calls: capital is the current spot price.
	Call
)

func (s Side) String() string {
	if s == Call {
		return "call"
	}
	return "put"
}

// ParseSide converts user/config input into a Side. Accepts the singular and
// plural spellings used by the CLI and the API ("put", "puts", "call",
// "calls"), case-insensitive.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "put", "puts", "p":
		return Put, nil
	case "call", "calls", "c":
		return Call, nil
	}
	return Put, fmt.Errorf("%w: unknown side %q (want put or call)", ErrInvalidInput, s)
}

// FilterMode controls liquidity filtering during normalization. The two
// pipelines deliberately diverge here: the fixed-strike report shows whatever
// quote data exists, while the seeker only considers contracts with a live
// bid. Do not unify the modes; it changes observable results.
type FilterMode int

const (
	// Lenient keeps rows without buyer interest and falls back to the last
	// traded price for the premium estimate.
	Lenient FilterMode = iota
	// Strict drops any row whose bid is not positive.
	Strict
)

// Quote is one raw option contract row as supplied by the market data
// provider, per expiration and side.
type Quote struct {
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	LastPrice         float64 `json:"last_price"`
	ImpliedVolatility float64 `json:"implied_volatility"`
}

// Premium returns the tradeable premium estimate: the bid/ask midpoint when
// both sides show interest, otherwise the last traded price.
func (q Quote) Premium() float64 {
	if q.Bid > 0 && q.Ask > 0 {
		return (q.Bid + q.Ask) / 2
	}
	return q.LastPrice
}

// Metrics is the derived per-contract record. Values are plain numbers;
// display formatting belongs to the render layer.
type Metrics struct {
	Strike              float64 `json:"strike"`
	Premium             float64 `json:"premium"`
	Capital             float64 `json:"capital"`
	DaysToExpiry        int     `json:"days_to_expiry"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	MoneynessPct        float64 `json:"moneyness_pct"`
	ImpliedVolatility   float64 `json:"implied_volatility"`
}

// Normalize filters one expiration's quotes and computes seller yield metrics
// for each surviving row.
//
// Capital is the strike for puts (cash set aside for assignment) and the spot
// price for calls (cost basis of the covered shares). The annualized return
// is premium/capital scaled by 365/daysToExpiry; no cap is applied, so a
// one-day expiry can legitimately produce an extreme percentage. Moneyness is
// signed so that positive means out-of-the-money, i.e. safer for the seller.
//
// daysToExpiry must already be clamped to >= 1 by the caller. Rows whose
// premium or capital come out non-positive are excluded rather than divided.
func Normalize(quotes []Quote, side Side, spot float64, daysToExpiry int, mode FilterMode) ([]Metrics, error) {
	if spot <= 0 {
		return nil, fmt.Errorf("%w: spot price must be positive, got %.4f", ErrInvalidInput, spot)
	}
	if daysToExpiry < 1 {
		return nil, fmt.Errorf("%w: days to expiry must be at least 1, got %d", ErrInvalidInput, daysToExpiry)
	}

	var out []Metrics
	for _, q := range quotes {
		if mode == Strict && q.Bid <= 0 {
			continue
		}

		premium := q.Premium()
		if premium <= 0 {
			continue
		}

		capital := spot
		moneyness := (q.Strike - spot) / spot * 100
		if side == Put {
			capital = q.Strike
			moneyness = (spot - q.Strike) / spot * 100
		}
		if capital <= 0 {
			continue
		}

		roc := premium / capital
		out = append(out, Metrics{
			Strike:              q.Strike,
			Premium:             premium,
			Capital:             capital,
			DaysToExpiry:        daysToExpiry,
			AnnualizedReturnPct: roc * (365.0 / float64(daysToExpiry)) * 100,
			MoneynessPct:        moneyness,
			ImpliedVolatility:   q.ImpliedVolatility,
		})
	}
	return out, nil
}
