// Package push delivers broadcast notifications to registered devices
// through an Expo-compatible push gateway.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is a single notification addressed to one device token.
type Message struct {
	To       string         `json:"to"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data,omitempty"`
	Sound    string         `json:"sound,omitempty"`
	Priority string         `json:"priority,omitempty"`
}

// Receipt is the gateway's per-message outcome. Receipts come back in
// the same order as the messages sent.
type Receipt struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

const (
	receiptOK = "ok"

	// errDeviceNotRegistered marks a token the gateway will never
	// deliver to again. The registration behind it should be removed.
	errDeviceNotRegistered = "DeviceNotRegistered"
)

// Dead reports whether the receipt identifies a permanently invalid token.
func (r Receipt) Dead() bool {
	return r.Status != receiptOK && r.Details.Error == errDeviceNotRegistered
}

// Transport sends one batch of messages and returns per-message receipts.
type Transport interface {
	Send(ctx context.Context, msgs []Message) ([]Receipt, error)
}

// HTTPTransport posts message batches to an Expo-style push endpoint.
type HTTPTransport struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPTransport(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type pushResponse struct {
	Data []Receipt `json:"data"`
}

func (t *HTTPTransport) Send(ctx context.Context, msgs []Message) ([]Receipt, error) {
	body, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode push batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post push batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("push gateway returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode push response: %w", err)
	}
	if len(parsed.Data) != len(msgs) {
		return nil, fmt.Errorf("push gateway returned %d receipts for %d messages", len(parsed.Data), len(msgs))
	}
	return parsed.Data, nil
}
