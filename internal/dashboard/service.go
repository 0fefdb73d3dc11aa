// Package dashboard provides the HTTP handlers serving derived borrower
// analytics: borrower tables, loan durations, risk scenarios, and pool and
// protocol rollups.
//
// Derived views are recomputed from the stored collections on every request;
// only the raw collection reads are cached (by the store layer).
package dashboard

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/analytics"
	"github.com/marginscope/analytics-engine/internal/ingest"
	"github.com/marginscope/analytics-engine/internal/metrics"
	"github.com/marginscope/analytics-engine/internal/model"
	"github.com/marginscope/analytics-engine/internal/risk"
	"github.com/marginscope/analytics-engine/internal/store"
)

// Service handles dashboard queries over the stored protocol collections.
type Service struct {
	store        store.Store
	refresher    *ingest.Refresher
	maxPoolShare decimal.Decimal
}

// NewService creates a dashboard service. Pass nil for refresher if manual
// refresh via the API is not needed.
func NewService(st store.Store, refresher *ingest.Refresher, maxPoolShare decimal.Decimal) *Service {
	return &Service{
		store:        st,
		refresher:    refresher,
		maxPoolShare: maxPoolShare,
	}
}

// RiskScenarioResponse is the JSON body returned from the what-if endpoint.
type RiskScenarioResponse struct {
	ManagerID               string           `json:"manager_id"`
	PriceChangePct          decimal.Decimal  `json:"price_change_pct"`
	CurrentRiskRatio        decimal.Decimal  `json:"current_risk_ratio"`
	ProjectedRiskRatio      decimal.Decimal  `json:"projected_risk_ratio"`
	LiquidationRiskRatio    decimal.Decimal  `json:"liquidation_risk_ratio"`
	LiquidationPriceDropPct *decimal.Decimal `json:"liquidation_price_drop_pct,omitempty"`
}

// loadBorrowers recomputes the full borrower view from the stored snapshot.
// Liquidations are returned alongside for the pool rollups.
func (s *Service) loadBorrowers(r *http.Request) ([]model.BorrowerData, []model.Liquidation, error) {
	ctx := r.Context()

	managers, err := s.store.ListManagers(ctx)
	if err != nil {
		return nil, nil, err
	}
	loans, err := s.store.ListLoans(ctx)
	if err != nil {
		return nil, nil, err
	}
	liquidations, err := s.store.ListLiquidations(ctx)
	if err != nil {
		return nil, nil, err
	}
	summaries, err := s.store.ListPositionSummaries(ctx)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	borrowers := analytics.Aggregate(managers, loans, liquidations, summaries)
	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	metrics.Borrowers.Set(float64(len(borrowers)))

	return borrowers, liquidations, nil
}

// buildBorrower assembles one borrower from the per-manager queries.
func (s *Service) buildBorrower(r *http.Request, managerID string) (*model.BorrowerData, error) {
	ctx := r.Context()

	manager, err := s.store.GetManager(ctx, managerID)
	if err != nil {
		return nil, err
	}
	loans, err := s.store.ListLoansByManager(ctx, managerID)
	if err != nil {
		return nil, err
	}
	liquidations, err := s.store.ListLiquidationsByManager(ctx, managerID)
	if err != nil {
		return nil, err
	}

	// The external risk summary is optional.
	var summaries []model.PositionSummary
	if ps, err := s.store.GetPositionSummary(ctx, managerID); err == nil {
		summaries = append(summaries, *ps)
	}

	borrowers := analytics.Aggregate([]model.Manager{*manager}, loans, liquidations, summaries)
	return &borrowers[0], nil
}

// ListBorrowers handles GET /api/v1/borrowers?search=&sort=&dir=
func (s *Service) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, _, err := s.loadBorrowers(r)
	if err != nil {
		writeError(w, "failed to load borrowers", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	borrowers = analytics.FilterAndSort(borrowers, q.Get("search"), q.Get("sort"), q.Get("dir"))

	writeJSON(w, http.StatusOK, borrowers)
}

// GetBorrower handles GET /api/v1/borrowers/{managerID}
func (s *Service) GetBorrower(w http.ResponseWriter, r *http.Request) {
	managerID := chi.URLParam(r, "managerID")

	borrower, err := s.buildBorrower(r, managerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "borrower not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load borrower", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, borrower)
}

// GetBorrowerDurations handles GET /api/v1/borrowers/{managerID}/durations
func (s *Service) GetBorrowerDurations(w http.ResponseWriter, r *http.Request) {
	managerID := chi.URLParam(r, "managerID")

	borrower, err := s.buildBorrower(r, managerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "borrower not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load borrower", http.StatusInternalServerError)
		return
	}

	records := analytics.EstimateDurations(*borrower)
	if records == nil {
		records = []model.DurationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetBorrowerRisk handles GET /api/v1/borrowers/{managerID}/risk?price_change=
func (s *Service) GetBorrowerRisk(w http.ResponseWriter, r *http.Request) {
	managerID := chi.URLParam(r, "managerID")

	priceChange := decimal.Zero
	if raw := r.URL.Query().Get("price_change"); raw != "" {
		var err error
		priceChange, err = decimal.NewFromString(raw)
		if err != nil {
			writeError(w, "price_change must be a number", http.StatusBadRequest)
			return
		}
	}

	ps, err := s.store.GetPositionSummary(r.Context(), managerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "no position summary for borrower", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load position summary", http.StatusInternalServerError)
		return
	}

	projected, err := risk.ProjectRiskRatio(*ps, priceChange)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	resp := RiskScenarioResponse{
		ManagerID:            managerID,
		PriceChangePct:       priceChange,
		CurrentRiskRatio:     ps.RiskRatio,
		ProjectedRiskRatio:   projected,
		LiquidationRiskRatio: ps.LiquidationRiskRatio,
	}
	if drop, err := risk.LiquidationPriceDrop(*ps); err == nil {
		resp.LiquidationPriceDropPct = &drop
	} else if !errors.Is(err, risk.ErrNoBaseCollateral) {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListPools handles GET /api/v1/pools
func (s *Service) ListPools(w http.ResponseWriter, r *http.Request) {
	borrowers, liquidations, err := s.loadBorrowers(r)
	if err != nil {
		writeError(w, "failed to load borrowers", http.StatusInternalServerError)
		return
	}

	stats := analytics.ComputePoolStats(borrowers, liquidations)
	if stats == nil {
		stats = []model.PoolStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetStats handles GET /api/v1/stats
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	borrowers, _, err := s.loadBorrowers(r)
	if err != nil {
		writeError(w, "failed to load borrowers", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, analytics.ComputeProtocolStats(borrowers))
}

// GetConcentration handles GET /api/v1/risk/concentration?max_share=
func (s *Service) GetConcentration(w http.ResponseWriter, r *http.Request) {
	maxShare := s.maxPoolShare
	if raw := r.URL.Query().Get("max_share"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || !parsed.IsPositive() || parsed.GreaterThan(decimal.NewFromInt(1)) {
			writeError(w, "max_share must be in (0, 1]", http.StatusBadRequest)
			return
		}
		maxShare = parsed
	}

	borrowers, _, err := s.loadBorrowers(r)
	if err != nil {
		writeError(w, "failed to load borrowers", http.StatusInternalServerError)
		return
	}

	flags := risk.FlagConcentration(borrowers, maxShare)
	if flags == nil {
		flags = []risk.ConcentrationFlag{}
	}
	writeJSON(w, http.StatusOK, flags)
}

// Refresh handles POST /api/v1/refresh
func (s *Service) Refresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, "refresh not configured", http.StatusServiceUnavailable)
		return
	}

	res, err := s.refresher.RefreshOnce(r.Context())
	if err != nil {
		slog.Error("manual refresh failed", "err", err)
		writeError(w, "refresh failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
