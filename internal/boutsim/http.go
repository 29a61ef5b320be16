package boutsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/okian/ringside/internal/domain/model"
	"github.com/okian/ringside/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL and JSON helpers.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// do sends body as JSON when non-nil and decodes a 2xx response into out when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

type submitAck struct {
	Accepted    bool   `json:"accepted"`
	IsDuplicate bool   `json:"is_duplicate"`
	EventHash   string `json:"event_hash"`
}

// submitJudgeEntries posts every entry 1+retries times from concurrent workers and
// returns the number of distinct events the server stored.
func submitJudgeEntries(ctx context.Context, client *HTTPClient, config *Config, entries []model.CombatEvent, stats *Stats) int {
	jobs := make(chan model.CombatEvent, config.Workers*WorkerChannelMultiplier)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored = make(map[string]struct{})
	)

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				var ack submitAck
				stats.EventsSubmitted.Add(1)
				status, err := client.do(ctx, http.MethodPost, "/events", e, &ack)
				switch {
				case err != nil:
					stats.EventsFailed.Add(1)
					logger.Get().Debug(ctx, "event submission failed", logger.Error(err))
				case status == StatusOK && ack.IsDuplicate:
					stats.EventsDuplicate.Add(1)
				default:
					stats.EventsAccepted.Add(1)
					mu.Lock()
					stored[ack.EventHash] = struct{}{}
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for attempt := 0; attempt <= config.Retries; attempt++ {
			for _, e := range entries {
				select {
				case <-ctx.Done():
					return
				case jobs <- e:
				}
			}
		}
	}()

	wg.Wait()
	return len(stored)
}

type detectionsRequest struct {
	Detections []model.CombatEvent `json:"detections"`
}

type detectionAck struct {
	Accepted int `json:"accepted"`
	Fused    int `json:"fused"`
	Rejected int `json:"rejected"`
}

// submitDetections posts one round's camera views as a single batch.
func submitDetections(ctx context.Context, client *HTTPClient, batch []model.CombatEvent, stats *Stats) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	var ack detectionAck
	stats.DetectionsSubmitted.Add(int64(len(batch)))
	if _, err := client.do(ctx, http.MethodPost, "/detections", detectionsRequest{Detections: batch}, &ack); err != nil {
		return 0, err
	}
	stats.DetectionsAccepted.Add(int64(ack.Accepted))
	stats.DetectionsFused.Add(int64(ack.Fused))
	stats.DetectionsRejected.Add(int64(ack.Rejected))
	return ack.Accepted, nil
}
