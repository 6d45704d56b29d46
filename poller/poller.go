// Package poller implements the client-owned side of the pull channel:
// a bounded loop asking the task status endpoint until the task reaches
// a terminal state or the attempt budget runs out.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"clementus360/ai-photo-editor/types"
)

const (
	DefaultInitialDelay = 2 * time.Second
	DefaultInterval     = 5 * time.Second
	DefaultMaxAttempts  = 60
)

// ErrTimeout means the attempt budget ran out before a terminal status
// was observed. It says nothing about the server-side task, which may
// still finish later.
var ErrTimeout = errors.New("timed out waiting for task to reach a terminal state")

type Client struct {
	BaseURL      string
	AuthToken    string
	HTTPClient   *http.Client
	InitialDelay time.Duration
	Interval     time.Duration
	MaxAttempts  int
}

func New(baseURL, authToken string) *Client {
	return &Client{
		BaseURL:      baseURL,
		AuthToken:    authToken,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		InitialDelay: DefaultInitialDelay,
		Interval:     DefaultInterval,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

// WaitForTask polls until the task is terminal, the context is
// canceled, or the budget is exhausted. Transport errors are treated as
// transient: the loop keeps going and spends an attempt.
func (c *Client) WaitForTask(ctx context.Context, taskID string) (types.Task, error) {
	if err := sleep(ctx, c.InitialDelay); err != nil {
		return types.Task{}, err
	}

	for attempt := 0; attempt < c.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.Interval); err != nil {
				return types.Task{}, err
			}
		}

		task, err := c.fetchTask(ctx, taskID)
		if err != nil {
			// transient; retry on the next tick
			continue
		}
		if task.Status.Terminal() {
			return task, nil
		}
	}

	return types.Task{}, ErrTimeout
}

func (c *Client) fetchTask(ctx context.Context, taskID string) (types.Task, error) {
	endpoint := c.BaseURL + "/task?id=" + url.QueryEscape(taskID)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return types.Task{}, err
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return types.Task{}, err
	}
	defer resp.Body.Close()

	var result types.TaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return types.Task{}, err
	}
	if !result.Success {
		return types.Task{}, fmt.Errorf("status query failed: %s", result.ErrorMessage)
	}
	return result.Task, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
