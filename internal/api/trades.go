package api

import (
	"context"
	"encoding/json"
	"time"
)

// TradesPayload is the client-side view of a trades response. Records are
// kept as raw JSON so numbers print exactly as the server sent them.
type TradesPayload struct {
	Status      string            `json:"status"`
	Timestamp   *time.Time        `json:"timestamp"`
	Data        []json.RawMessage `json:"data"`
	Error       string            `json:"error,omitempty"`
	Fingerprint string            `json:"-"`
}

type StatusPayload struct {
	Path        string     `json:"path"`
	Loads       int64      `json:"loads"`
	LastStatus  string     `json:"last_status,omitempty"`
	LastLoad    *time.Time `json:"last_load"`
	ModTime     *time.Time `json:"mod_time"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Rows        int        `json:"rows"`
	Error       string     `json:"error,omitempty"`
}

// TradesClient calls the trade monitor endpoints under an API prefix.
type TradesClient struct {
	client *Client
	prefix string
	retry  *RetryConfig
}

func NewTradesClient(client *Client, prefix string, retry *RetryConfig) *TradesClient {
	if prefix == "/" {
		prefix = ""
	}
	return &TradesClient{client: client, prefix: prefix, retry: retry}
}

// Trades checks for a change and returns the new snapshot or no_update.
func (t *TradesClient) Trades(ctx context.Context) (*TradesPayload, error) {
	return t.trades(ctx, "/trades")
}

func (t *TradesClient) Current(ctx context.Context) (*TradesPayload, error) {
	return t.trades(ctx, "/trades/current")
}

func (t *TradesClient) Refresh(ctx context.Context) (*TradesPayload, error) {
	return t.trades(ctx, "/trades/refresh")
}

func (t *TradesClient) Status(ctx context.Context) (*StatusPayload, error) {
	resp, err := t.client.GETWithRetry(ctx, t.prefix+"/trades/status", t.retry)
	if err != nil {
		return nil, err
	}
	var out StatusPayload
	if err := resp.ParseJSON(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TradesClient) trades(ctx context.Context, path string) (*TradesPayload, error) {
	resp, err := t.client.GETWithRetry(ctx, t.prefix+path, t.retry)
	if err != nil {
		return nil, err
	}
	var out TradesPayload
	if err := resp.ParseJSON(&out); err != nil {
		return nil, err
	}
	out.Fingerprint = resp.Headers.Get("X-Trades-Fingerprint")
	return &out, nil
}
