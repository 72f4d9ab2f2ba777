package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/aquatank/aquatank/internal/aqua"
)

// Client talks to an aquatank-server instance over HTTP.
// All methods accept a context for cancellation and timeouts, and wrap
// transport and server errors with enough context to diagnose them.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL
// (e.g., "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// NewWithHTTPClient creates a client that sends requests through the given
// http.Client. Use this to set timeouts or custom transports.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// ConsumeResult is the server's response to a consumption request: the
// outcome ("consumed" or "rejected_insufficient_o2") and the tank state
// after the call.
type ConsumeResult struct {
	Result   string        `json:"result"`
	Snapshot aqua.Snapshot `json:"snapshot"`
}

// CreateTank creates the tank with the given ID on the server, replacing any
// existing tank under that ID, and returns its initial state.
func (c *Client) CreateTank(ctx context.Context, id string, cfg aqua.TankConfig) (aqua.Snapshot, error) {
	var snapshot aqua.Snapshot
	err := c.doJSON(ctx, http.MethodPost, c.path("tank", id), cfg, &snapshot)
	if err != nil {
		return aqua.Snapshot{}, fmt.Errorf("creating tank %s: %w", id, err)
	}
	return snapshot, nil
}

// ConsumeO2 removes o2Used milligrams of O2 from the tank and adds the CO2
// produced by respiration at the given respiratory quotient. Pass rq=0 for
// molar-equivalent production (rq=1).
//
// A rejected consumption is not an error: the result carries
// "rejected_insufficient_o2" and the unchanged tank state.
func (c *Client) ConsumeO2(ctx context.Context, id string, o2Used, rq float64) (ConsumeResult, error) {
	body := map[string]float64{"o2_used": o2Used, "rq": rq}

	var result ConsumeResult
	err := c.doJSONStatus(ctx, http.MethodPost, c.path("tank", id, "consume"), body, &result,
		http.StatusOK, http.StatusConflict)
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("consuming O2 on tank %s: %w", id, err)
	}
	return result, nil
}

// State returns the full current state of the tank.
func (c *Client) State(ctx context.Context, id string) (aqua.Snapshot, error) {
	var snapshot aqua.Snapshot
	err := c.doJSON(ctx, http.MethodGet, c.path("tank", id, "state"), nil, &snapshot)
	if err != nil {
		return aqua.Snapshot{}, fmt.Errorf("fetching state of tank %s: %w", id, err)
	}
	return snapshot, nil
}

// Report returns the three-row tabular view (headspace, water, total) of the
// tank's current state.
func (c *Client) Report(ctx context.Context, id string) (aqua.Report, error) {
	var report aqua.Report
	err := c.doJSON(ctx, http.MethodGet, c.path("tank", id, "report"), nil, &report)
	if err != nil {
		return aqua.Report{}, fmt.Errorf("fetching report of tank %s: %w", id, err)
	}
	return report, nil
}

// SaveSnapshot asks the server to persist the tank's state to its snapshot
// directory and returns the written path.
func (c *Client) SaveSnapshot(ctx context.Context, id string) (string, error) {
	var resp map[string]string
	err := c.doJSON(ctx, http.MethodPost, c.path("tank", id, "snapshot"), nil, &resp)
	if err != nil {
		return "", fmt.Errorf("saving snapshot of tank %s: %w", id, err)
	}
	return resp["path"], nil
}

// DeleteTank removes the tank from the server.
func (c *Client) DeleteTank(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.path("tank", id), nil, nil); err != nil {
		return fmt.Errorf("deleting tank %s: %w", id, err)
	}
	return nil
}

// ListTanks returns the IDs of all tanks on the server.
func (c *Client) ListTanks(ctx context.Context) ([]string, error) {
	var resp map[string][]string
	if err := c.doJSON(ctx, http.MethodGet, c.path("tanks"), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing tanks: %w", err)
	}
	return resp["tanks"], nil
}

// RegisterWebhook registers a webhook notifier on the server. Every
// consumption event on every tank is then POSTed to webhookURL.
func (c *Client) RegisterWebhook(ctx context.Context, id, webhookURL string) error {
	body := map[string]any{
		"type":   "webhook",
		"id":     id,
		"config": map[string]any{"url": webhookURL},
	}
	if err := c.doJSON(ctx, http.MethodPost, c.path("notifiers"), body, nil); err != nil {
		return fmt.Errorf("registering webhook %s: %w", id, err)
	}
	return nil
}

// UnregisterNotifier removes a notifier from the server.
func (c *Client) UnregisterNotifier(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, c.path("notifiers", id), nil, nil); err != nil {
		return fmt.Errorf("unregistering notifier %s: %w", id, err)
	}
	return nil
}

func (c *Client) path(parts ...string) string {
	u, err := url.JoinPath(c.baseURL, parts...)
	if err != nil {
		// JoinPath only fails on an unparsable base URL; surface it on
		// the request instead.
		return c.baseURL
	}
	return u
}

// doJSON sends a request with an optional JSON body and decodes a JSON
// response into out (when out is non-nil). Only 200 is accepted.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	return c.doJSONStatus(ctx, method, url, body, out, http.StatusOK)
}

func (c *Client) doJSONStatus(ctx context.Context, method, url string, body, out any, okStatuses ...int) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, status := range okStatuses {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
