package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mycare-ai/intake/internal/config"
)

type apiClient struct {
	client *resty.Client
}

func newClient(baseURL string, hc *http.Client) *apiClient {
	c := resty.NewWithClient(hc).
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	return &apiClient{client: c}
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.LoadUnchecked()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return newClient(serverURL(cfg), &http.Client{Timeout: 30 * time.Second}), nil
}

func serverURL(cfg config.Config) string {
	return fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, v any) error {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("server not reachable, is intake running? (%w)", err)
	}
	return decodeJSON(resp, v)
}

func (c *apiClient) get(ctx context.Context, path string, v any) error {
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *apiClient) post(ctx context.Context, path string, body, v any) error {
	return c.do(ctx, http.MethodPost, path, body, v)
}

func decodeJSON(resp *resty.Response, v any) error {
	if resp.IsError() {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), resp.String())
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(resp.Body(), v)
}
