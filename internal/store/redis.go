package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marginscope/analytics-engine/internal/model"
)

// Cache keys for the full-collection reads. Collections are swapped
// wholesale on refresh, so fixed keys plus invalidation-on-replace are
// enough; per-manager queries go straight to the primary.
const (
	managersKey     = "collection:managers"
	loansKey        = "collection:loans"
	liquidationsKey = "collection:liquidations"
	summariesKey    = "collection:positions"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache over the collection list reads. Replace operations write to the
// primary and invalidate the corresponding key; reads check Redis first and
// fall back to the primary on a miss.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Snapshot writes (write to primary, invalidate cache) ---

func (s *CachedStore) ReplaceManagers(ctx context.Context, managers []model.Manager) error {
	if err := s.primary.ReplaceManagers(ctx, managers); err != nil {
		return err
	}
	s.rdb.Del(ctx, managersKey)
	return nil
}

func (s *CachedStore) ReplaceLoans(ctx context.Context, loans []model.Loan) error {
	if err := s.primary.ReplaceLoans(ctx, loans); err != nil {
		return err
	}
	s.rdb.Del(ctx, loansKey)
	return nil
}

func (s *CachedStore) ReplaceLiquidations(ctx context.Context, liquidations []model.Liquidation) error {
	if err := s.primary.ReplaceLiquidations(ctx, liquidations); err != nil {
		return err
	}
	s.rdb.Del(ctx, liquidationsKey)
	return nil
}

func (s *CachedStore) ReplacePositionSummaries(ctx context.Context, summaries []model.PositionSummary) error {
	if err := s.primary.ReplacePositionSummaries(ctx, summaries); err != nil {
		return err
	}
	s.rdb.Del(ctx, summariesKey)
	return nil
}

// --- Read-through collection reads ---

func (s *CachedStore) ListManagers(ctx context.Context) ([]model.Manager, error) {
	var managers []model.Manager
	if s.readCached(ctx, managersKey, &managers) {
		return managers, nil
	}
	managers, err := s.primary.ListManagers(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCached(ctx, managersKey, managers)
	return managers, nil
}

func (s *CachedStore) ListLoans(ctx context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	if s.readCached(ctx, loansKey, &loans) {
		return loans, nil
	}
	loans, err := s.primary.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCached(ctx, loansKey, loans)
	return loans, nil
}

func (s *CachedStore) ListLiquidations(ctx context.Context) ([]model.Liquidation, error) {
	var liqs []model.Liquidation
	if s.readCached(ctx, liquidationsKey, &liqs) {
		return liqs, nil
	}
	liqs, err := s.primary.ListLiquidations(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCached(ctx, liquidationsKey, liqs)
	return liqs, nil
}

func (s *CachedStore) ListPositionSummaries(ctx context.Context) ([]model.PositionSummary, error) {
	var summaries []model.PositionSummary
	if s.readCached(ctx, summariesKey, &summaries) {
		return summaries, nil
	}
	summaries, err := s.primary.ListPositionSummaries(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCached(ctx, summariesKey, summaries)
	return summaries, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetManager(ctx context.Context, id string) (*model.Manager, error) {
	return s.primary.GetManager(ctx, id)
}

func (s *CachedStore) ListLoansByManager(ctx context.Context, managerID string) ([]model.Loan, error) {
	return s.primary.ListLoansByManager(ctx, managerID)
}

func (s *CachedStore) ListLiquidationsByManager(ctx context.Context, managerID string) ([]model.Liquidation, error) {
	return s.primary.ListLiquidationsByManager(ctx, managerID)
}

func (s *CachedStore) GetPositionSummary(ctx context.Context, managerID string) (*model.PositionSummary, error) {
	return s.primary.GetPositionSummary(ctx, managerID)
}

// --- Cache helpers ---

func (s *CachedStore) readCached(ctx context.Context, key string, v interface{}) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (s *CachedStore) writeCached(ctx context.Context, key string, v interface{}) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}
