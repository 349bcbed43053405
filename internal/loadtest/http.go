package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/fairway/internal/domain/model"
)

// ErrUnexpectedStatus marks a response outside the statuses a call accepts.
var ErrUnexpectedStatus = errors.New("unexpected status")

// HTTPClient wraps http.Client for the planner API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request and decodes a JSON response into out when the status
// is one of ok. It returns the status code.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, headers map[string]string, out any, ok ...int) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	for _, code := range ok {
		if resp.StatusCode == code {
			if out != nil {
				if err := json.Unmarshal(raw, out); err != nil {
					return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
				}
			}
			return resp.StatusCode, nil
		}
	}
	return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(raw))
}

func (c *HTTPClient) health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil, http.StatusOK)
	return err
}

func (c *HTTPClient) saveIntake(ctx context.Context, in model.PlayerIntake) error {
	_, err := c.do(ctx, http.MethodPost, "/intakes", in, nil, nil, http.StatusCreated)
	return err
}

// generatePlan posts a plan request. replayed reports a 200 replay.
func (c *HTTPClient) generatePlan(ctx context.Context, intakeID, key string) (gp model.GeneratedPlan, replayed bool, status int, err error) {
	headers := map[string]string{"Idempotency-Key": key}
	status, err = c.do(ctx, http.MethodPost, "/plans", map[string]string{"intake_id": intakeID}, headers, &gp,
		http.StatusCreated, http.StatusOK)
	return gp, status == http.StatusOK, status, err
}

func (c *HTTPClient) activePlan(ctx context.Context, playerID string) (model.GeneratedPlan, error) {
	var gp model.GeneratedPlan
	_, err := c.do(ctx, http.MethodGet, "/players/"+playerID+"/plan", nil, nil, &gp, http.StatusOK)
	return gp, err
}

func (c *HTTPClient) regenerate(ctx context.Context, playerID string) (int, error) {
	return c.do(ctx, http.MethodPost, "/players/"+playerID+"/regenerate",
		map[string]string{"reason": "load test"}, nil, nil, http.StatusAccepted)
}
