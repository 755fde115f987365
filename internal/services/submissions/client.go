package submissions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/terraconstructs/taskgate/internal/auth"
)

// TaskRef is the slice of a task the submission service cares about.
type TaskRef struct {
	ID     int64
	Title  string
	Status string
}

// TaskClient reaches the task service on behalf of a caller.
type TaskClient interface {
	GetTask(ctx context.Context, id int64, caller auth.Identity) (*TaskRef, error)
	CompleteTask(ctx context.Context, id int64, caller auth.Identity) (*TaskRef, error)
}

// HTTPTaskClient calls the task service over HTTP, forwarding the caller's
// trust headers so the task service applies its own role checks.
type HTTPTaskClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTaskClient returns a client for the task service at baseURL. Every
// call is bounded by timeout.
func NewHTTPTaskClient(baseURL string, timeout time.Duration) (*HTTPTaskClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid task service url %q", baseURL)
	}
	return &HTTPTaskClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// GetTask fetches a task by id.
func (c *HTTPTaskClient) GetTask(ctx context.Context, id int64, caller auth.Identity) (*TaskRef, error) {
	return c.do(ctx, http.MethodGet, "/api/tasks/"+strconv.FormatInt(id, 10), caller)
}

// CompleteTask marks a task DONE.
func (c *HTTPTaskClient) CompleteTask(ctx context.Context, id int64, caller auth.Identity) (*TaskRef, error) {
	return c.do(ctx, http.MethodPut, "/api/tasks/"+strconv.FormatInt(id, 10)+"/complete", caller)
}

func (c *HTTPTaskClient) do(ctx context.Context, method, path string, caller auth.Identity) (*TaskRef, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build task request: %w", err)
	}
	caller.Apply(req.Header)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read task response: %v", ErrDependencyUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTaskNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: task service returned %d", ErrTaskRejected, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: task service returned %d", ErrDependencyUnavailable, resp.StatusCode)
	}

	return parseTaskRef(body)
}

func parseTaskRef(body []byte) (*TaskRef, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: task response is not JSON", ErrDependencyUnavailable)
	}
	id := gjson.GetBytes(body, "id")
	if !id.Exists() || id.Int() == 0 {
		return nil, errors.Join(ErrTaskNotFound, errors.New("task response has no id"))
	}
	return &TaskRef{
		ID:     id.Int(),
		Title:  gjson.GetBytes(body, "title").String(),
		Status: gjson.GetBytes(body, "status").String(),
	}, nil
}
