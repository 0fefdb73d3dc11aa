package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/marginscope/analytics-engine/internal/model"
)

// SnapshotFile reads all four collections from one static JSON document:
//
//	{"managers": [...], "loans": [...], "liquidations": [...], "positions": [...]}
//
// The file is re-read on every fetch so a replaced snapshot is picked up on
// the next refresh without a restart.
type SnapshotFile struct {
	path string
}

// NewSnapshotFile creates a snapshot source for the given file path.
func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

type snapshotDoc struct {
	Managers     []model.Manager         `json:"managers"`
	Loans        []model.Loan            `json:"loans"`
	Liquidations []model.Liquidation     `json:"liquidations"`
	Positions    []model.PositionSummary `json:"positions"`
}

func (s *SnapshotFile) load() (*snapshotDoc, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", s.path, err)
	}
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("snapshot: parse %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *SnapshotFile) FetchManagers(_ context.Context) ([]model.Manager, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Managers, nil
}

func (s *SnapshotFile) FetchLoans(_ context.Context) ([]model.Loan, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return normalizeLoans(doc.Loans), nil
}

func (s *SnapshotFile) FetchLiquidations(_ context.Context) ([]model.Liquidation, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return normalizeLiquidations(doc.Liquidations), nil
}

func (s *SnapshotFile) FetchPositionSummaries(_ context.Context) ([]model.PositionSummary, error) {
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Positions, nil
}
