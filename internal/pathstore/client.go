// Package pathstore publishes parsed METS trees to a pathstore key/value
// service over its HTTP API.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryableError marks a failure that may succeed if the request is repeated:
// a transport error or a 5xx response.
type RetryableError struct {
	Op         string
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *RetryableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Client communicates with the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value     any    `json:"value"`
	MergeMode string `json:"merge_mode,omitempty"`
	Source    string `json:"source,omitempty"`
}

// NodeResponse is the response from GET /kv/{key}.
type NodeResponse struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
}

// ListChildrenResponse is a single node from a prefix scan.
type ListChildrenResponse struct {
	Key   string `json:"key_path"`
	Value any    `json:"value"`
}

// do sends req and returns the response when its status is one of ok.
// The caller closes the body.
func (c *Client) do(req *http.Request, op string, ok ...int) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, &RetryableError{Op: op, Err: err}
	}
	for _, code := range ok {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	statusErr := errors.New(string(bytes.TrimSpace(respBody)))
	if resp.StatusCode >= 500 {
		return nil, &RetryableError{Op: op, StatusCode: resp.StatusCode, Err: statusErr}
	}
	return nil, fmt.Errorf("%s: status %d: %w", op, resp.StatusCode, statusErr)
}

// PutNode stores or updates a node at the given path.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/kv/"+key, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.do(httpReq, "put node "+key, http.StatusOK, http.StatusCreated)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// GetNode retrieves a node by key. A missing node is nil with no error.
func (c *Client) GetNode(ctx context.Context, key string) (*NodeResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/kv/"+key, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(httpReq, "get node "+key, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	var node NodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return &node, nil
}

// DeleteNode deletes a node and optionally its children.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	u := c.baseURL + "/kv/" + key
	if recursive {
		u += "?children=true"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(httpReq, "delete node "+key, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ListChildren does a prefix scan under the given key.
func (c *Client) ListChildren(ctx context.Context, key string, limit int) ([]ListChildrenResponse, error) {
	u := c.baseURL + "/kv/" + key + "/*"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.do(httpReq, "list children "+key, http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Nodes []ListChildrenResponse `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	return result.Nodes, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
