package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/optyield/optyield/internal/chain"
)

const (
	// DefaultBaseURL is the public Yahoo Finance query host.
	DefaultBaseURL = "https://query2.finance.yahoo.com"

	// DefaultPacing is the gap enforced between consecutive requests.
	// Yahoo throttles unauthenticated clients hard; a polite delay keeps a
	// ten-expiration scan under the radar.
	DefaultPacing = 300 * time.Millisecond

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second
)

// YahooProvider fetches option chains from the Yahoo Finance v7 options
// endpoint. One endpoint serves everything: the bare call returns the
// underlying quote plus the expiration calendar, and ?date=<unix> returns
// the chain for that expiration.
type YahooProvider struct {
	baseURL    string
	pacing     time.Duration
	httpClient *http.Client

	rateMu      sync.Mutex
	lastRequest time.Time
}

// NewYahooProvider creates a provider. Zero values fall back to the package
// defaults.
func NewYahooProvider(baseURL string, pacing, timeout time.Duration) *YahooProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &YahooProvider{
		baseURL: baseURL,
		pacing:  pacing,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *YahooProvider) ProviderName() string {
	return "yahoo"
}

// Yahoo API response structures
type yahooOptionsResponse struct {
	OptionChain struct {
		Result []yahooChainResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

type yahooChainResult struct {
	UnderlyingSymbol string `json:"underlyingSymbol"`
	Quote            struct {
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"quote"`
	ExpirationDates []int64 `json:"expirationDates"`
	Options         []struct {
		ExpirationDate int64        `json:"expirationDate"`
		Calls          []yahooQuote `json:"calls"`
		Puts           []yahooQuote `json:"puts"`
	} `json:"options"`
}

type yahooQuote struct {
	Strike            float64 `json:"strike"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	LastPrice         float64 `json:"lastPrice"`
	ImpliedVolatility float64 `json:"impliedVolatility"`
}

// pace enforces the configured delay between consecutive requests.
func (p *YahooProvider) pace() {
	p.rateMu.Lock()
	defer p.rateMu.Unlock()

	if wait := p.pacing - time.Since(p.lastRequest); wait > 0 {
		time.Sleep(wait)
	}
	p.lastRequest = time.Now()
}

// fetchChain performs one paced request against the options endpoint.
// date == 0 fetches the front expiration plus the expiration calendar.
func (p *YahooProvider) fetchChain(ctx context.Context, ticker string, date int64) (*yahooChainResult, error) {
	p.pace()

	endpoint := fmt.Sprintf("%s/v7/finance/options/%s", p.baseURL, url.PathEscape(ticker))
	if date > 0 {
		endpoint = fmt.Sprintf("%s?date=%d", endpoint, date)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	// Yahoo rejects the default Go user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) optyield/1.0")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chain request for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading chain response for %s: %w", ticker, err)
	}

	log.WithFields(log.Fields{
		"ticker":   ticker,
		"date":     date,
		"status":   resp.StatusCode,
		"bytes":    len(body),
		"duration": time.Since(start),
	}).Debug("yahoo chain request")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("chain request for %s: %w", ticker, ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("ticker %s: %w", ticker, ErrNoData)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("chain request for %s: status %d: %s", ticker, resp.StatusCode, string(body))
	}

	var parsed yahooOptionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing chain response for %s: %w", ticker, err)
	}
	if e := parsed.OptionChain.Error; e != nil {
		return nil, fmt.Errorf("ticker %s: %s (%s): %w", ticker, e.Description, e.Code, ErrNoData)
	}
	if len(parsed.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("ticker %s: empty option chain: %w", ticker, ErrNoData)
	}
	return &parsed.OptionChain.Result[0], nil
}

func (p *YahooProvider) GetSpotPrice(ctx context.Context, ticker string) (float64, error) {
	result, err := p.fetchChain(ctx, ticker, 0)
	if err != nil {
		return 0, err
	}
	price := result.Quote.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("ticker %s: no market price: %w", ticker, ErrNoData)
	}
	return price, nil
}

func (p *YahooProvider) ListExpirations(ctx context.Context, ticker string) ([]string, error) {
	result, err := p.fetchChain(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}
	if len(result.ExpirationDates) == 0 {
		return nil, fmt.Errorf("ticker %s: no expirations: %w", ticker, ErrNoData)
	}
	expirations := make([]string, 0, len(result.ExpirationDates))
	for _, unix := range result.ExpirationDates {
		expirations = append(expirations, time.Unix(unix, 0).UTC().Format("2006-01-02"))
	}
	return expirations, nil
}

func (p *YahooProvider) GetChain(ctx context.Context, ticker, expiration string, side chain.Side) ([]chain.Quote, error) {
	expDate, err := time.Parse("2006-01-02", expiration)
	if err != nil {
		return nil, fmt.Errorf("bad expiration date %q: %w", expiration, err)
	}

	result, err := p.fetchChain(ctx, ticker, expDate.UTC().Unix())
	if err != nil {
		return nil, err
	}
	if len(result.Options) == 0 {
		return nil, nil
	}

	raw := result.Options[0].Puts
	if side == chain.Call {
		raw = result.Options[0].Calls
	}

	quotes := make([]chain.Quote, 0, len(raw))
	for _, q := range raw {
		quotes = append(quotes, chain.Quote{
			Strike:            q.Strike,
			Bid:               q.Bid,
			Ask:               q.Ask,
			LastPrice:         q.LastPrice,
			ImpliedVolatility: q.ImpliedVolatility,
		})
	}
	return quotes, nil
}
