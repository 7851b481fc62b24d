// Package gosdk is a tiny HTTP client for the dataflow-engine introspection
// and control API exposed by internal/server.
package gosdk

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/dataflow-engine/internal/pipeline"
	"github.com/example/dataflow-engine/internal/server"
)

// Client is a tiny helper for invoking the dataflow-engine HTTP API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// RunEvent mirrors one entry of a run's SSE progress log.
type RunEvent struct {
	Seq   uint64 `json:"seq"`
	Event string `json:"event"`
	RunID string `json:"run_id"`
	Data  any    `json:"data,omitempty"`
}

// NewClient creates a client using the supplied baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ListSteps retrieves the registered step summaries via GET /v1/steps.
func (c *Client) ListSteps(ctx context.Context) ([]pipeline.StepSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/steps", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http error: %s", resp.Status)
	}

	var payload struct {
		Steps []pipeline.StepSummary `json:"steps"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Steps, nil
}

// ResumePoint retrieves the checkpoint key an Execute would resume from, via
// GET /v1/checkpoint/resume-point.
func (c *Client) ResumePoint(ctx context.Context) (stepKey string, resumable bool, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/checkpoint/resume-point", nil)
	if reqErr != nil {
		return "", false, reqErr
	}

	resp, doErr := c.httpClient().Do(req)
	if doErr != nil {
		return "", false, doErr
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", false, fmt.Errorf("http error: %s", resp.Status)
	}

	var payload struct {
		StepKey   string `json:"step_key"`
		Resumable bool   `json:"resumable"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil {
		return "", false, decodeErr
	}
	return payload.StepKey, payload.Resumable, nil
}

// TriggerRun starts a run via POST /v1/run. It returns 409 as an error if a
// run is already in flight.
func (c *Client) TriggerRun(ctx context.Context) (*server.Run, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/run", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http error: %s", resp.Status)
	}

	return decodeRun(resp)
}

// GetRun retrieves a run's current status via GET /v1/run/{id}.
func (c *Client) GetRun(ctx context.Context, runID string) (*server.Run, error) {
	url := fmt.Sprintf("%s/v1/run/%s", c.BaseURL, runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http error: %s", resp.Status)
	}

	return decodeRun(resp)
}

func decodeRun(resp *http.Response) (*server.Run, error) {
	var run server.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, err
	}
	return &run, nil
}

// StreamRunEvents opens GET /v1/run/{id}/events and returns a channel of
// parsed SSE events. The channel closes when the run reaches a terminal
// event, the server closes the connection, or ctx is cancelled.
func (c *Client) StreamRunEvents(ctx context.Context, runID string) (<-chan RunEvent, error) {
	url := fmt.Sprintf("%s/v1/run/%s/events", c.BaseURL, runID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, fmt.Errorf("http error: %s", resp.Status)
	}

	ch := make(chan RunEvent)
	go func() {
		defer resp.Body.Close()
		defer close(ch)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var evt RunEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
				return
			}
			select {
			case ch <- evt:
			case <-ctx.Done():
				return
			}
			if evt.Event == "run_succeeded" || evt.Event == "run_failed" {
				return
			}
		}
	}()
	return ch, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	return c.HTTPClient
}
