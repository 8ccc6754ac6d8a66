// Package market supplies spot prices, expiration calendars and raw option
// chains to the scan pipelines. Providers own all transport concerns:
// request pacing, throttling detection, caching. The core never retries;
// anything beyond the two sentinel errors below is a transient fetch failure
// the scan layer skips.
package market

import (
	"context"
	"errors"

	"github.com/optyield/optyield/internal/chain"
)

var (
	// ErrNoData means the ticker has no price, no expirations or no chain.
	// Fatal for the evaluation; not retried.
	ErrNoData = errors.New("no market data")

	// ErrRateLimited means the provider is throttling us. Scans stop
	// immediately and return whatever they already collected.
	ErrRateLimited = errors.New("rate limited by provider")
)

// Provider is the fetch collaborator consumed by the scan pipelines.
// Implementations may block arbitrarily long per call (pacing delays) and
// must be side-effect free on failure.
type Provider interface {
	// GetSpotPrice returns the current underlying price. ErrNoData when the
	// ticker is unknown or has no quote.
	GetSpotPrice(ctx context.Context, ticker string) (float64, error)

	// ListExpirations returns the available expiration dates in chronological
	// order, formatted YYYY-MM-DD.
	ListExpirations(ctx context.Context, ticker string) ([]string, error)

	// GetChain returns all quotes for one expiration and side.
	GetChain(ctx context.Context, ticker, expiration string, side chain.Side) ([]chain.Quote, error)

	// ProviderName identifies the provider in logs.
	ProviderName() string
}
