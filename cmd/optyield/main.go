// Command optyield evaluates option-selling yields: a fixed-strike premium
// report across expirations, a best-qualifying-strike search, or an HTTP
// server exposing both.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/optyield/optyield/internal/chain"
	"github.com/optyield/optyield/internal/config"
	"github.com/optyield/optyield/internal/handlers"
	"github.com/optyield/optyield/internal/market"
	"github.com/optyield/optyield/internal/render"
	"github.com/optyield/optyield/internal/scan"
)

var (
	flagTicker    string
	flagSide      string
	flagStrike    float64
	flagMinReturn float64
	flagMonths    int
	flagLimit     int
	flagVerbose   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "optyield",
	Short: "Annualized yield scanner for option sellers (cash-secured puts, covered calls)",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real deployments use the environment directly
		_ = godotenv.Load()
		setupLogging()
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Premium yield time series for a fixed strike across expirations",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if flagStrike <= 0 {
			log.Fatal("--strike must be a positive number")
		}
		side := parseSideFlag(cfg)

		ctx := context.Background()
		provider := buildProvider(cfg)
		spot, expirations := resolveMarket(ctx, provider, flagTicker)

		fmt.Printf("%s spot: $%.2f\n", flagTicker, spot)

		months := flagMonths
		if months == 0 {
			months = cfg.Scan.HorizonMonths
		}
		limit := flagLimit
		if limit == 0 {
			limit = cfg.Scan.ReportExpirations
		}

		rep, err := scan.New(provider).Report(ctx, expirations, scan.ReportParams{
			Ticker:         flagTicker,
			Side:           side,
			Strike:         flagStrike,
			Spot:           spot,
			HorizonMonths:  months,
			MaxExpirations: limit,
		})
		if err != nil {
			log.Fatalf("report failed: %v", err)
		}

		if flagVerbose {
			render.Progress(os.Stdout, rep.Outcomes)
		}
		fmt.Printf("%s yield report, strike $%.2f:\n", side, flagStrike)
		render.Report(os.Stdout, flagStrike, rep)
	},
}

var seekCmd = &cobra.Command{
	Use:   "seek",
	Short: "Find the safest strike per expiration that clears a minimum annualized return",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		side := parseSideFlag(cfg)

		minReturn := flagMinReturn
		if minReturn == 0 {
			minReturn = cfg.Scan.MinAnnualReturnPct
		}
		limit := flagLimit
		if limit == 0 {
			limit = cfg.Scan.SeekExpirations
		}
		months := flagMonths
		if months == 0 {
			months = cfg.Scan.HorizonMonths
		}

		ctx := context.Background()
		provider := buildProvider(cfg)
		spot, expirations := resolveMarket(ctx, provider, flagTicker)

		fmt.Printf("%s spot: $%.2f, seeking %s strikes with >= %.1f%% annualized\n",
			flagTicker, spot, side, minReturn)

		rep, err := scan.New(provider).Seek(ctx, expirations, scan.SeekParams{
			Ticker:             flagTicker,
			Side:               side,
			Spot:               spot,
			MinAnnualReturnPct: minReturn,
			HorizonMonths:      months,
			MaxExpirations:     limit,
		})
		if err != nil {
			log.Fatalf("seek failed: %v", err)
		}

		if flagVerbose {
			render.Progress(os.Stdout, rep.Outcomes)
		}
		render.Seek(os.Stdout, minReturn, rep)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report and seek endpoints over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		provider := buildProvider(cfg)

		r := mux.NewRouter()
		handlers.NewScanHandler(provider, cfg).RegisterRoutes(r)

		addr := ":" + cfg.Port
		log.WithFields(log.Fields{
			"addr":     addr,
			"provider": provider.ProviderName(),
		}).Info("optyield server starting")

		srv := &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute, // paced scans are slow by design
		}
		if err := srv.ListenAndServe(); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "per-expiration progress output and debug logs")

	for _, cmd := range []*cobra.Command{reportCmd, seekCmd} {
		cmd.Flags().StringVarP(&flagTicker, "ticker", "t", "", "underlying ticker symbol (required)")
		cmd.Flags().StringVarP(&flagSide, "side", "s", "", "put (cash-secured) or call (covered)")
		cmd.Flags().IntVarP(&flagMonths, "months", "m", 0, "only consider expirations within this many 30-day months")
		cmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "max expirations to scan")
		_ = cmd.MarkFlagRequired("ticker")
	}
	reportCmd.Flags().Float64VarP(&flagStrike, "strike", "k", 0, "target strike price (required)")
	_ = reportCmd.MarkFlagRequired("strike")
	seekCmd.Flags().Float64VarP(&flagMinReturn, "min-return", "r", 0, "minimum annualized return percent")

	rootCmd.AddCommand(reportCmd, seekCmd, serveCmd)
}

func setupLogging() {
	cfg := config.Load()

	level, err := log.ParseLevel(cfg.Logging.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if flagVerbose && level < log.DebugLevel {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if cfg.Logging.LogFile != "" {
		f, err := os.OpenFile(cfg.Logging.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.WithError(err).Warn("could not open log file, logging to stderr")
			return
		}
		log.SetOutput(f)
	}
}

// buildProvider assembles the market data stack: Yahoo, optionally wrapped
// in the Redis chain cache.
func buildProvider(cfg *config.Config) market.Provider {
	var provider market.Provider = market.NewYahooProvider(cfg.Provider.BaseURL, cfg.Pacing(), cfg.Timeout())

	if cfg.Cache.Enabled {
		opt, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			log.WithError(err).Warn("bad redis url, running without chain cache")
			return provider
		}
		provider = market.NewCachedProvider(provider, redis.NewClient(opt), cfg.ChainTTL())
		log.WithField("ttl", cfg.ChainTTL()).Debug("chain cache enabled")
	}
	return provider
}

// resolveMarket fetches the spot price and expiration calendar or exits with
// a readable message; neither failure is retryable here.
func resolveMarket(ctx context.Context, provider market.Provider, ticker string) (float64, []string) {
	spot, err := provider.GetSpotPrice(ctx, ticker)
	if err != nil {
		log.Fatalf("no price for %s: %v", ticker, err)
	}
	expirations, err := provider.ListExpirations(ctx, ticker)
	if err != nil || len(expirations) == 0 {
		log.Fatalf("no option expirations for %s: %v", ticker, err)
	}
	return spot, expirations
}

func parseSideFlag(cfg *config.Config) chain.Side {
	raw := flagSide
	if raw == "" {
		raw = cfg.Scan.Side
	}
	side, err := chain.ParseSide(raw)
	if err != nil {
		log.Fatalf("bad --side: %v", err)
	}
	return side
}
