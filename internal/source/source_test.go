package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newIndexerStub(t *testing.T, payloads map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIndexerClient_FetchManagers(t *testing.T) {
	srv := newIndexerStub(t, map[string]interface{}{
		"/managers": []model.Manager{
			{ID: "M1", Owner: "0xabc", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		},
	})

	c := NewIndexerClient(srv.URL, 5*time.Second)
	managers, err := c.FetchManagers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(managers) != 1 || managers[0].ID != "M1" {
		t.Errorf("unexpected managers: %+v", managers)
	}
}

func TestIndexerClient_FetchLoansScalesKnownPools(t *testing.T) {
	srv := newIndexerStub(t, map[string]interface{}{
		"/loans": []model.Loan{
			{MarginManagerID: "M1", MarginPoolID: "MPOOL-USDC-6", LoanAmount: d(2500000), Status: model.LoanBorrowed},
			{MarginManagerID: "M1", MarginPoolID: "legacy-pool", LoanAmount: d(7), Status: model.LoanBorrowed},
		},
	})

	c := NewIndexerClient(srv.URL, 5*time.Second)
	loans, err := c.FetchLoans(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loans[0].LoanAmount.Equal(d(2.5)) {
		t.Errorf("expected scaled amount 2.5, got %s", loans[0].LoanAmount)
	}
	// Unparseable pool ids pass through unscaled.
	if !loans[1].LoanAmount.Equal(d(7)) {
		t.Errorf("expected passthrough amount 7, got %s", loans[1].LoanAmount)
	}
}

func TestIndexerClient_FetchLiquidationsScalesAllAmounts(t *testing.T) {
	srv := newIndexerStub(t, map[string]interface{}{
		"/liquidations": []model.Liquidation{
			{
				MarginManagerID:   "M1",
				MarginPoolID:      "MPOOL-SUI-9",
				LiquidationAmount: d(3e9),
				DefaultAmount:     d(1e9),
				PoolRewardAmount:  d(5e8),
			},
		},
	})

	c := NewIndexerClient(srv.URL, 5*time.Second)
	liqs, err := c.FetchLiquidations(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := liqs[0]
	if !l.LiquidationAmount.Equal(d(3)) || !l.DefaultAmount.Equal(d(1)) || !l.PoolRewardAmount.Equal(d(0.5)) {
		t.Errorf("amounts not scaled: %s / %s / %s",
			l.LiquidationAmount, l.DefaultAmount, l.PoolRewardAmount)
	}
}

func TestIndexerClient_Non200Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewIndexerClient(srv.URL, 5*time.Second)
	if _, err := c.FetchManagers(context.Background()); err == nil {
		t.Error("expected error on non-200 status")
	} else if !strings.Contains(err.Error(), "502") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}

func TestIndexerClient_ContextCancelled(t *testing.T) {
	srv := newIndexerStub(t, map[string]interface{}{"/managers": []model.Manager{}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewIndexerClient(srv.URL, 5*time.Second)
	if _, err := c.FetchManagers(ctx); err == nil {
		t.Error("expected error on cancelled context")
	}
}

func TestSnapshotFile_FetchAll(t *testing.T) {
	doc := map[string]interface{}{
		"managers": []model.Manager{{ID: "M1", Owner: "0xabc"}},
		"loans": []model.Loan{
			{MarginManagerID: "M1", MarginPoolID: "MPOOL-USDC-6", LoanAmount: d(1000000), Status: model.LoanBorrowed},
		},
		"liquidations": []model.Liquidation{},
		"positions": []model.PositionSummary{
			{ManagerID: "M1", BaseAsset: "SUI", QuoteAsset: "USDC", DebtAmount: d(100)},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSnapshotFile(path)
	ctx := context.Background()

	managers, err := s.FetchManagers(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(managers) != 1 || managers[0].ID != "M1" {
		t.Errorf("unexpected managers: %+v", managers)
	}

	loans, err := s.FetchLoans(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loans[0].LoanAmount.Equal(d(1)) {
		t.Errorf("snapshot loans must be scaled too, got %s", loans[0].LoanAmount)
	}

	positions, err := s.FetchPositionSummaries(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 1 || positions[0].BaseAsset != "SUI" {
		t.Errorf("unexpected positions: %+v", positions)
	}
}

func TestSnapshotFile_ReloadsOnEachFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	write := func(ids ...string) {
		managers := make([]model.Manager, len(ids))
		for i, id := range ids {
			managers[i] = model.Manager{ID: id}
		}
		data, _ := json.Marshal(map[string]interface{}{"managers": managers})
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write("M1")
	s := NewSnapshotFile(path)
	if managers, _ := s.FetchManagers(context.Background()); len(managers) != 1 {
		t.Fatalf("expected 1 manager, got %d", len(managers))
	}

	write("M1", "M2")
	managers, err := s.FetchManagers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(managers) != 2 {
		t.Errorf("replaced snapshot must be picked up, got %d managers", len(managers))
	}
}

func TestSnapshotFile_MissingFile(t *testing.T) {
	s := NewSnapshotFile(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := s.FetchManagers(context.Background()); err == nil {
		t.Error("expected error for missing snapshot file")
	}
}

func TestSnapshotFile_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewSnapshotFile(path)
	if _, err := s.FetchLoans(context.Background()); err == nil {
		t.Error("expected error for malformed snapshot")
	}
}
