// Package handlers exposes the scan pipelines over HTTP. Responses carry
// plain numbers; formatting is the client's job.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/optyield/optyield/internal/chain"
	"github.com/optyield/optyield/internal/config"
	"github.com/optyield/optyield/internal/market"
	"github.com/optyield/optyield/internal/models"
	"github.com/optyield/optyield/internal/scan"
)

// ScanHandler serves the report and seek endpoints.
type ScanHandler struct {
	provider market.Provider
	scanner  *scan.Scanner
	cfg      *config.Config
}

func NewScanHandler(provider market.Provider, cfg *config.Config) *ScanHandler {
	return &ScanHandler{
		provider: provider,
		scanner:  scan.New(provider),
		cfg:      cfg,
	}
}

// RegisterRoutes mounts the API on the given router.
func (h *ScanHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/report", h.ReportHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/seek", h.SeekHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/health", h.HealthHandler).Methods(http.MethodGet)
}

// ReportHandler serves GET /api/v1/report?ticker=NVDA&strike=170&side=put&months=6&limit=8
func (h *ScanHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	ticker, side, err := h.parseCommon(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	strike, err := parseFloat(r, "strike", 0)
	if err != nil || strike <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("strike must be a positive number"))
		return
	}
	months, err := parseInt(r, "months", h.cfg.Scan.HorizonMonths)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseInt(r, "limit", h.cfg.Scan.ReportExpirations)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	spot, expirations, ok := h.resolveMarket(r.Context(), w, ticker)
	if !ok {
		return
	}

	rep, err := h.scanner.Report(r.Context(), expirations, scan.ReportParams{
		Ticker:         ticker,
		Side:           side,
		Strike:         strike,
		Spot:           spot,
		HorizonMonths:  months,
		MaxExpirations: limit,
	})
	if err != nil {
		writeScanError(w, err)
		return
	}

	resp := models.ReportResponse{
		Success: true,
		Rows:    make([]models.ReportRow, 0, len(rep.Rows)),
		Meta: models.Meta{
			Ticker:             ticker,
			Side:               side.String(),
			SpotPrice:          spot,
			Strike:             strike,
			HorizonMonths:      months,
			ExpirationsScanned: len(rep.Outcomes),
			ResultCount:        len(rep.Rows),
			RateLimited:        rep.RateLimited,
			Timestamp:          time.Now().UTC().Format(time.RFC3339),
		},
	}
	for _, row := range rep.Rows {
		resp.Rows = append(resp.Rows, reportRow(row))
	}
	if rep.Best != nil {
		best := reportRow(*rep.Best)
		resp.Best = &best
	}
	writeJSON(w, http.StatusOK, resp)
}

// SeekHandler serves GET /api/v1/seek?ticker=NVDA&side=put&min_return=15&limit=10
func (h *ScanHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	ticker, side, err := h.parseCommon(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	minReturn, err := parseFloat(r, "min_return", h.cfg.Scan.MinAnnualReturnPct)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	months, err := parseInt(r, "months", h.cfg.Scan.HorizonMonths)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := parseInt(r, "limit", h.cfg.Scan.SeekExpirations)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	spot, expirations, ok := h.resolveMarket(r.Context(), w, ticker)
	if !ok {
		return
	}

	rep, err := h.scanner.Seek(r.Context(), expirations, scan.SeekParams{
		Ticker:             ticker,
		Side:               side,
		Spot:               spot,
		MinAnnualReturnPct: minReturn,
		HorizonMonths:      months,
		MaxExpirations:     limit,
	})
	if err != nil {
		writeScanError(w, err)
		return
	}

	resp := models.SeekResponse{
		Success: true,
		Results: make([]models.SeekRow, 0, len(rep.Results)),
		Meta: models.Meta{
			Ticker:             ticker,
			Side:               side.String(),
			SpotPrice:          spot,
			MinAnnualReturnPct: minReturn,
			HorizonMonths:      months,
			ExpirationsScanned: len(rep.Outcomes),
			ResultCount:        len(rep.Results),
			RateLimited:        rep.RateLimited,
			Timestamp:          time.Now().UTC().Format(time.RFC3339),
		},
	}
	for _, res := range rep.Results {
		resp.Results = append(resp.Results, models.SeekRow{
			Expiration:          res.Expiration,
			DaysToExpiry:        res.DaysToExpiry,
			Strike:              res.Strike,
			Premium:             res.Premium,
			AnnualizedReturnPct: res.AnnualizedReturnPct,
			ImpliedVolatility:   res.ImpliedVolatility,
			SafetyGap:           res.SafetyGap,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthHandler reports liveness and the active provider.
func (h *ScanHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"provider": h.provider.ProviderName(),
	})
}

// parseCommon extracts the parameters shared by both endpoints.
func (h *ScanHandler) parseCommon(r *http.Request) (string, chain.Side, error) {
	ticker := strings.TrimSpace(strings.ToUpper(r.URL.Query().Get("ticker")))
	if ticker == "" {
		return "", chain.Put, fmt.Errorf("ticker is required")
	}
	sideStr := r.URL.Query().Get("side")
	if sideStr == "" {
		sideStr = h.cfg.Scan.Side
	}
	side, err := chain.ParseSide(sideStr)
	if err != nil {
		return "", chain.Put, err
	}
	return ticker, side, nil
}

// resolveMarket fetches spot and expirations, writing the error response
// itself when either is unavailable.
func (h *ScanHandler) resolveMarket(ctx context.Context, w http.ResponseWriter, ticker string) (float64, []string, bool) {
	spot, err := h.provider.GetSpotPrice(ctx, ticker)
	if err != nil {
		writeScanError(w, err)
		return 0, nil, false
	}
	expirations, err := h.provider.ListExpirations(ctx, ticker)
	if err != nil {
		writeScanError(w, err)
		return 0, nil, false
	}
	return spot, expirations, true
}

func parseFloat(r *http.Request, key string, defaultValue float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

func parseInt(r *http.Request, key string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func reportRow(row scan.Row) models.ReportRow {
	return models.ReportRow{
		Expiration:          row.Expiration,
		DaysToExpiry:        row.DaysToExpiry,
		Premium:             row.Premium,
		Capital:             row.Capital,
		AnnualizedReturnPct: row.AnnualizedReturnPct,
		MoneynessPct:        row.MoneynessPct,
		ImpliedVolatility:   row.ImpliedVolatility,
	}
}

// writeScanError maps the error taxonomy onto HTTP statuses: bad inputs are
// the client's fault, missing tickers are 404, anything else is the
// upstream provider misbehaving.
func writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, market.ErrNoData):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, market.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	} else {
		log.WithError(err).Debug("request rejected")
	}
	writeJSON(w, status, models.ErrorResponse{Success: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("encoding response")
	}
}
