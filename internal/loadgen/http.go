package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/okian/ecotrack/internal/adapters/http/api"
	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
	"golang.org/x/time/rate"
)

// HTTPClient wraps http.Client with a timeout and an optional client-side
// rate limiter.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

// newHTTPClient creates a new HTTP client. A zero ratePerSec disables pacing.
func newHTTPClient(timeout time.Duration, ratePerSec float64) *HTTPClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a paced POST request with a JSON body and extra headers.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}, headers map[string]string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func getJSON(ctx context.Context, client *HTTPClient, url string, v interface{}) error {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// outcome classifies one submitted adjustment.
type outcome int

const (
	outcomeApplied outcome = iota
	outcomeReplayed
	outcomeRateLimited
	outcomeFailed
)

// updateBody is the wire body of POST /api/gamification/update.
type updateBody struct {
	Type        model.AdjustmentType `json:"type"`
	Points      float64              `json:"points"`
	Description string               `json:"description,omitempty"`
}

// tally accumulates submission outcomes across workers.
type tally struct {
	mu sync.Mutex

	submitted   int
	applied     int
	replayed    int
	rateLimited int
	failed      int
	adds        float64
	deducts     float64
}

func (t *tally) record(adj Adjustment, o outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.submitted++
	switch o {
	case outcomeApplied:
		t.applied++
		if adj.Type == model.AdjustmentDeduct {
			t.deducts += adj.Points
		} else {
			t.adds += adj.Points
		}
	case outcomeReplayed:
		t.replayed++
	case outcomeRateLimited:
		t.rateLimited++
	case outcomeFailed:
		t.failed++
	}
}

func (t *tally) progress() (submitted, applied, replayed, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitted, t.applied, t.replayed, t.failed + t.rateLimited
}

// submitAdjustments sends adjustments concurrently using a worker pool.
func submitAdjustments(ctx context.Context, config *Config, client *HTTPClient, adjustments []Adjustment, t *tally) {
	logger.Get().Info(ctx, "submitting adjustments",
		logger.Int("count", len(adjustments)),
		logger.Int("workers", config.Workers))

	url := config.BaseURL + "/api/gamification/update"
	adjChan := make(chan Adjustment, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for adj := range adjChan {
				t.record(adj, submitSingleAdjustment(ctx, client, url, adj))

				if config.Verbose {
					submitted, applied, replayed, failed := t.progress()
					logger.Get().Debug(ctx, "progress",
						logger.Int("submitted", submitted),
						logger.Int("applied", applied),
						logger.Int("replayed", replayed),
						logger.Int("failed", failed))
				}
			}
		}()
	}

	func() {
		defer close(adjChan)
		for _, adj := range adjustments {
			select {
			case <-ctx.Done():
				return
			case adjChan <- adj:
			}
		}
	}()

	wg.Wait()
}

// submitSingleAdjustment posts one adjustment, retrying with the same key
// while the service answers 429 or 409.
func submitSingleAdjustment(ctx context.Context, client *HTTPClient, url string, adj Adjustment) outcome {
	body := updateBody{Type: adj.Type, Points: adj.Points, Description: adj.Description}
	headers := map[string]string{api.HeaderIdempotencyKey: adj.Key}

	last := outcomeFailed
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := client.Post(ctx, url, body, headers)
		if err != nil {
			return outcomeFailed
		}
		o, retry := classify(resp)
		if !retry {
			return o
		}
		last = o

		select {
		case <-ctx.Done():
			return last
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return last
}

// classify drains the response and maps it to an outcome. The second result
// reports whether the request may be retried.
func classify(resp *http.Response) (outcome, bool) {
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case StatusOK:
		var res types.UpdateResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil || !res.Success {
			return outcomeFailed, false
		}
		if resp.Header.Get(api.HeaderIdempotentReplayed) == "true" {
			return outcomeReplayed, false
		}
		return outcomeApplied, false
	case StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return outcomeRateLimited, true
	case http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return outcomeFailed, true
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return outcomeFailed, false
	}
}
