package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mycare-ai/intake/internal/interview"
)

const maxReplyBytes = 4 << 20

// Webhook sends each step to a workflow webhook that runs the agent.
type Webhook struct {
	url        string
	httpClient *http.Client
}

type webhookRequest struct {
	ChatInput string `json:"chatInput"`
	SessionID string `json:"sessionId"`
}

// NewWebhook creates a Webhook backend posting to url. No client timeout is
// set; callers bound the call through ctx if they need to.
func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, httpClient: &http.Client{}}
}

func (w *Webhook) Send(ctx context.Context, req interview.Request) (interview.Reply, error) {
	body, err := json.Marshal(webhookRequest{ChatInput: req.Input, SessionID: req.SessionID})
	if err != nil {
		return interview.Reply{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return interview.Reply{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return interview.Reply{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return interview.Reply{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return interview.Reply{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	return Decode(respBody)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
