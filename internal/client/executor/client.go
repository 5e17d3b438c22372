// Package executor is the HTTP/WS client for the external swap-execution
// service: it fills signed cross-asset orders and transfers auctioned tokens
// to winning bidders.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("executor API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SubmitOrder forwards a signed intent to the executor and returns its
// accepted-order reference.
func (c *Client) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (string, error) {
	if strings.TrimSpace(req.OrderHash) == "" {
		return "", fmt.Errorf("order_hash is required")
	}
	var resp SubmitOrderResponse
	if err := c.doRequest(ctx, http.MethodPost, "/orders", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.OrderID) == "" {
		return "", fmt.Errorf("executor returned empty order id")
	}
	return resp.OrderID, nil
}

// PollStatus reports unfilled, filled (with the actual amount converted), or
// rejected for a previously submitted order.
func (c *Client) PollStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("order_id is required")
	}
	var status OrderStatus
	if err := c.doRequest(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Distribute transfers auctioned tokens to the bidder post-fill. Transport
// and rejection errors surface to the caller, which maps them to a failed
// settlement.
func (c *Client) Distribute(ctx context.Context, req DistributeRequest) (string, error) {
	if strings.TrimSpace(req.Bidder) == "" {
		return "", fmt.Errorf("bidder is required")
	}
	if req.Amount.Sign() <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	var resp DistributeResponse
	if err := c.doRequest(ctx, http.MethodPost, "/distributions", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.DistributionRef) == "" {
		return "", fmt.Errorf("executor returned empty distribution ref")
	}
	return resp.DistributionRef, nil
}
