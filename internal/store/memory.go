package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/marginscope/analytics-engine/internal/model"
)

// MemoryStore implements Store with in-memory slices. Used for testing and
// for deployments without a database (data does not survive a restart).
// Snapshot input order is preserved on reads.
type MemoryStore struct {
	mu           sync.RWMutex
	managers     []model.Manager
	loans        []model.Loan
	liquidations []model.Liquidation
	summaries    []model.PositionSummary
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) ReplaceManagers(_ context.Context, managers []model.Manager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managers = append([]model.Manager(nil), managers...)
	return nil
}

func (s *MemoryStore) ReplaceLoans(_ context.Context, loans []model.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans = append([]model.Loan(nil), loans...)
	return nil
}

func (s *MemoryStore) ReplaceLiquidations(_ context.Context, liquidations []model.Liquidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liquidations = append([]model.Liquidation(nil), liquidations...)
	return nil
}

func (s *MemoryStore) ReplacePositionSummaries(_ context.Context, summaries []model.PositionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append([]model.PositionSummary(nil), summaries...)
	return nil
}

func (s *MemoryStore) ListManagers(_ context.Context) ([]model.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Manager(nil), s.managers...), nil
}

func (s *MemoryStore) ListLoans(_ context.Context) ([]model.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Loan(nil), s.loans...), nil
}

func (s *MemoryStore) ListLiquidations(_ context.Context) ([]model.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Liquidation(nil), s.liquidations...), nil
}

func (s *MemoryStore) ListPositionSummaries(_ context.Context) ([]model.PositionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.PositionSummary(nil), s.summaries...), nil
}

func (s *MemoryStore) GetManager(_ context.Context, id string) (*model.Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.managers {
		if m.ID == id {
			copy := m
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("manager %s: %w", id, ErrNotFound)
}

func (s *MemoryStore) ListLoansByManager(_ context.Context, managerID string) ([]model.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Loan
	for _, l := range s.loans {
		if l.MarginManagerID == managerID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListLiquidationsByManager(_ context.Context, managerID string) ([]model.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Liquidation
	for _, liq := range s.liquidations {
		if liq.MarginManagerID == managerID {
			result = append(result, liq)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetPositionSummary(_ context.Context, managerID string) (*model.PositionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ps := range s.summaries {
		if ps.ManagerID == managerID {
			copy := ps
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("position summary for manager %s: %w", managerID, ErrNotFound)
}
