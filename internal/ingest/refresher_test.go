package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
	"github.com/marginscope/analytics-engine/internal/store"
)

// fakeSource returns canned collections with per-collection failure switches.
type fakeSource struct {
	managers  []model.Manager
	loans     []model.Loan
	liqs      []model.Liquidation
	positions []model.PositionSummary

	failLoans     bool
	failPositions bool
}

var errFetch = errors.New("fetch failed")

func (f *fakeSource) FetchManagers(context.Context) ([]model.Manager, error) {
	return f.managers, nil
}

func (f *fakeSource) FetchLoans(context.Context) ([]model.Loan, error) {
	if f.failLoans {
		return nil, errFetch
	}
	return f.loans, nil
}

func (f *fakeSource) FetchLiquidations(context.Context) ([]model.Liquidation, error) {
	return f.liqs, nil
}

func (f *fakeSource) FetchPositionSummaries(context.Context) ([]model.PositionSummary, error) {
	if f.failPositions {
		return nil, errFetch
	}
	return f.positions, nil
}

// recorder captures refresh notifications.
type recorder struct {
	results []Result
}

func (r *recorder) SnapshotRefreshed(res Result) {
	r.results = append(r.results, res)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		managers: []model.Manager{{ID: "M1", Owner: "0xabc"}},
		loans: []model.Loan{
			{MarginManagerID: "M1", MarginPoolID: "P1", LoanAmount: decimal.NewFromInt(100), Status: model.LoanBorrowed},
		},
		liqs: []model.Liquidation{
			{MarginManagerID: "M1", MarginPoolID: "P1", LiquidationAmount: decimal.NewFromInt(20)},
		},
		positions: []model.PositionSummary{{ManagerID: "M1", BaseAsset: "SUI"}},
	}
}

func TestRefreshOnce(t *testing.T) {
	st := store.NewMemoryStore()
	notifier := &recorder{}
	r := NewRefresher(newFakeSource(), st, notifier, time.Minute)

	res, err := r.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Managers != 1 || res.Loans != 1 || res.Liquidations != 1 || res.Positions != 1 {
		t.Errorf("unexpected counts: %+v", res)
	}
	if res.SnapshotID == "" {
		t.Error("expected a snapshot id")
	}

	managers, _ := st.ListManagers(context.Background())
	if len(managers) != 1 || managers[0].ID != "M1" {
		t.Errorf("store not populated: %+v", managers)
	}

	if len(notifier.results) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.results))
	}
	if notifier.results[0].SnapshotID != res.SnapshotID {
		t.Error("notification must carry the refresh result")
	}
}

func TestRefreshOnce_FetchFailureKeepsPreviousSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	src := newFakeSource()
	r := NewRefresher(src, st, nil, time.Minute)

	if _, err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("seed refresh failed: %v", err)
	}

	src.failLoans = true
	if _, err := r.RefreshOnce(context.Background()); err == nil {
		t.Fatal("expected error when loans fetch fails")
	}

	// The previous snapshot must still be intact.
	loans, _ := st.ListLoans(context.Background())
	if len(loans) != 1 {
		t.Errorf("failed refresh must not clobber stored loans, got %d", len(loans))
	}
}

func TestRefreshOnce_PositionsFailureIsNonFatal(t *testing.T) {
	st := store.NewMemoryStore()
	src := newFakeSource()
	src.failPositions = true
	r := NewRefresher(src, st, nil, time.Minute)

	res, err := r.RefreshOnce(context.Background())
	if err != nil {
		t.Fatalf("positions failure must not abort the refresh: %v", err)
	}
	if res.Positions != 0 {
		t.Errorf("expected 0 positions, got %d", res.Positions)
	}

	summaries, _ := st.ListPositionSummaries(context.Background())
	if len(summaries) != 0 {
		t.Errorf("stale summaries must be cleared, got %d", len(summaries))
	}
}

func TestRefreshOnce_NilNotifier(t *testing.T) {
	r := NewRefresher(newFakeSource(), store.NewMemoryStore(), nil, time.Minute)
	if _, err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("nil notifier must be allowed: %v", err)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	r := NewRefresher(newFakeSource(), store.NewMemoryStore(), nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
