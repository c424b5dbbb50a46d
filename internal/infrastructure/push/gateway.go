package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrDisabled is returned by a gateway built without a URL.
var ErrDisabled = errors.New("push: gateway disabled")

type sendRequest struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
	SenderName  string `json:"sender_name"`
}

// HTTPGateway posts notifications to the push delivery service.
type HTTPGateway struct {
	url    string
	client *http.Client
}

func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPGateway{url: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *HTTPGateway) Send(ctx context.Context, recipientID, text, senderName string) error {
	if g.url == "" {
		return ErrDisabled
	}
	body, err := json.Marshal(sendRequest{RecipientID: recipientID, Text: text, SenderName: senderName})
	if err != nil {
		return fmt.Errorf("push: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("push: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("push: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push: gateway answered %d", resp.StatusCode)
	}
	return nil
}
