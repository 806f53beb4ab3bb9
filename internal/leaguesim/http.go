package leaguesim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/types"
	"github.com/okian/spread/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// StatusError is returned for unexpected response codes.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Status, e.Body)
}

// Get performs a GET request and decodes a JSON response into out.
func (c *HTTPClient) Get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, path, out)
}

// Post performs a POST request with a JSON body and decodes the response.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *HTTPClient) do(req *http.Request, path string, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &StatusError{Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Health checks GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.Get(ctx, "/healthz", nil)
}

// AddMatches posts one batch to POST /matches.
func (c *HTTPClient) AddMatches(ctx context.Context, batch []model.Match) (types.IngestResult, error) {
	req := make([]types.Match, len(batch))
	for i, m := range batch {
		req[i] = types.FromMatch(m)
	}
	var res types.IngestResult
	err := c.Post(ctx, "/matches", req, &res)
	return res, err
}

// Train runs POST /train.
func (c *HTTPClient) Train(ctx context.Context) (types.ModelSummary, error) {
	var res types.ModelSummary
	err := c.Post(ctx, "/train", struct{}{}, &res)
	return res, err
}

// Predict runs POST /predict.
func (c *HTTPClient) Predict(ctx context.Context, entries []model.ScheduleEntry) ([]types.Forecast, error) {
	req := make([]types.Entry, len(entries))
	for i, e := range entries {
		req[i] = types.FromEntry(e)
	}
	var res []types.Forecast
	err := c.Post(ctx, "/predict", req, &res)
	return res, err
}

// Ratings fetches GET /ratings.
func (c *HTTPClient) Ratings(ctx context.Context, limit int) ([]types.Standing, error) {
	var res []types.Standing
	err := c.Get(ctx, fmt.Sprintf("/ratings?limit=%d", limit), &res)
	return res, err
}

// submitMatches posts the league in batches. Batches go out concurrently
// on config.Workers goroutines; the ledger reorders them canonically.
func submitMatches(ctx context.Context, config *Config, matches []model.Match, stats *Stats) error {
	batches := batch(matches, config.BatchSize)
	log.Printf("📤 Submitting %d matches in %d batches with %d workers...",
		len(matches), len(batches), config.Workers)

	client := NewHTTPClient(config.BaseURL, config.Timeout)

	var (
		accepted  int64
		duplicate int64
		failed    int64
		submitted int64
	)

	batchChan := make(chan []model.Match, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batchChan {
				if ctx.Err() != nil {
					return
				}
				atomic.AddInt64(&submitted, int64(len(b)))
				res, err := client.AddMatches(ctx, b)
				switch {
				case err == nil:
					atomic.AddInt64(&accepted, int64(res.Accepted))
				case isStatus(err, http.StatusConflict):
					atomic.AddInt64(&duplicate, int64(len(b)))
				default:
					atomic.AddInt64(&failed, int64(len(b)))
					if config.Verbose {
						log.Printf("⚠️  batch failed: %v", err)
					}
				}
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case batchChan <- b:
			}
		}
	}()

	wg.Wait()

	stats.MatchesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.MatchesAccepted = int(atomic.LoadInt64(&accepted))
	stats.MatchesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.MatchesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Match submission completed:
   Accepted: %d
   Duplicate: %d
   Failed: %d
`, stats.MatchesAccepted, stats.MatchesDuplicate, stats.MatchesFailed)

	if err := ctx.Err(); err != nil {
		return err
	}
	if stats.MatchesFailed > 0 {
		return fmt.Errorf("%d matches were rejected", stats.MatchesFailed)
	}
	return nil
}

func batch(matches []model.Match, size int) [][]model.Match {
	if size <= 0 {
		size = len(matches)
	}
	var out [][]model.Match
	for len(matches) > 0 {
		n := size
		if n > len(matches) {
			n = len(matches)
		}
		out = append(out, matches[:n])
		matches = matches[n:]
	}
	return out
}

func isStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
