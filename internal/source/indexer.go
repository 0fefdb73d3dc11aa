package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/marginscope/analytics-engine/internal/model"
)

// IndexerClient fetches collections from a REST indexer:
//
//	GET {base}/managers
//	GET {base}/loans
//	GET {base}/liquidations
//	GET {base}/positions
//
// Bodies are JSON arrays of the corresponding model types.
type IndexerClient struct {
	baseURL string
	client  *http.Client
}

// NewIndexerClient creates a client for the indexer at baseURL.
func NewIndexerClient(baseURL string, timeout time.Duration) *IndexerClient {
	return &IndexerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *IndexerClient) FetchManagers(ctx context.Context) ([]model.Manager, error) {
	var managers []model.Manager
	if err := c.getJSON(ctx, "/managers", &managers); err != nil {
		return nil, err
	}
	return managers, nil
}

func (c *IndexerClient) FetchLoans(ctx context.Context) ([]model.Loan, error) {
	var loans []model.Loan
	if err := c.getJSON(ctx, "/loans", &loans); err != nil {
		return nil, err
	}
	return normalizeLoans(loans), nil
}

func (c *IndexerClient) FetchLiquidations(ctx context.Context) ([]model.Liquidation, error) {
	var liqs []model.Liquidation
	if err := c.getJSON(ctx, "/liquidations", &liqs); err != nil {
		return nil, err
	}
	return normalizeLiquidations(liqs), nil
}

func (c *IndexerClient) FetchPositionSummaries(ctx context.Context) ([]model.PositionSummary, error) {
	var positions []model.PositionSummary
	if err := c.getJSON(ctx, "/positions", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (c *IndexerClient) getJSON(ctx context.Context, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("indexer: build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("indexer: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer: GET %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("indexer: decode %s: %w", path, err)
	}
	return nil
}
