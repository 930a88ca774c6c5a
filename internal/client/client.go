// Package client is a typed HTTP client for the fitd API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"fitd/pkg/types"
)

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("fitd: %d %s: %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("fitd: %d: %s", e.StatusCode, e.Message)
}

// IsKind reports whether err is an APIError of the given kind
// (e.g. "not_found", "capacity_exceeded").
func IsKind(err error, kind string) bool {
	var e *APIError
	return errors.As(err, &e) && e.Kind == kind
}

type Client struct {
	rest *resty.Client
}

// New returns a client for the server at baseURL. A non-positive timeout
// defaults to 30s.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Client{rest: r}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var apiErr types.ErrorResponse
	req := c.rest.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		e := &APIError{StatusCode: resp.StatusCode(), Message: apiErr.Error, Kind: apiErr.Kind}
		if e.Message == "" {
			e.Message = strings.TrimSpace(resp.String())
		}
		return e
	}
	return nil
}

// Fit starts a training job and returns its ID.
func (c *Client) Fit(ctx context.Context, req types.FitRequest) (string, error) {
	var out types.StatusReply
	if err := c.do(ctx, http.MethodPost, "/fit", req, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

// Predict runs a loaded model on X.
func (c *Client) Predict(ctx context.Context, name string, X [][]float64) ([]any, error) {
	var out types.PredictResponse
	if err := c.do(ctx, http.MethodPost, "/predict", types.PredictRequest{Name: name, X: X}, &out); err != nil {
		return nil, err
	}
	return out.Predictions, nil
}

// Load returns "loaded" or "already_loaded".
func (c *Client) Load(ctx context.Context, name string) (string, error) {
	var out types.StatusReply
	if err := c.do(ctx, http.MethodPost, "/load", types.ModelRequest{Name: name}, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) Unload(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/unload", types.ModelRequest{Name: name}, nil)
}

func (c *Client) Remove(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodPost, "/remove", types.ModelRequest{Name: name}, nil)
}

// RemoveAll deletes every model and returns how many were removed.
func (c *Client) RemoveAll(ctx context.Context) (int, error) {
	var out types.StatusReply
	if err := c.do(ctx, http.MethodPost, "/remove_all", nil, &out); err != nil {
		return 0, err
	}
	if out.Removed == nil {
		return 0, nil
	}
	return *out.Removed, nil
}

func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

func (c *Client) Models(ctx context.Context) ([]types.ModelInfo, error) {
	var out types.ModelsResponse
	if err := c.do(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

func (c *Client) Jobs(ctx context.Context) ([]types.JobStatus, error) {
	var out types.JobsResponse
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (c *Client) Job(ctx context.Context, name string) (types.JobStatus, error) {
	var out types.JobStatus
	err := c.do(ctx, http.MethodGet, "/jobs/"+name, nil, &out)
	return out, err
}

// WaitJob polls the job for name until it is done or failed, or ctx ends.
func (c *Client) WaitJob(ctx context.Context, name string, every time.Duration) (types.JobStatus, error) {
	if every <= 0 {
		every = 200 * time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		j, err := c.Job(ctx, name)
		if err != nil {
			return j, err
		}
		if j.Terminal() {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-t.C:
		}
	}
}
