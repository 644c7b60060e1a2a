package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tillware/syncengine/models"
)

type HTTPClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type httpSyncTransport struct {
	client *resty.Client
}

func NewHTTPSyncTransport(cfg HTTPClientConfig) SyncTransport {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		cli.SetAuthToken(cfg.Token)
	}

	return &httpSyncTransport{client: cli}
}

func (h *httpSyncTransport) Push(ctx context.Context, req models.PushRequest) (models.PushResponse, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/sync/push")
	if err != nil {
		return models.PushResponse{}, fmt.Errorf("%w: push request: %w", ErrUnreachable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PushResponse{}, err
	}

	var out models.PushResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.PushResponse{}, fmt.Errorf("decode push response: %w", err)
	}

	return out, nil
}

func (h *httpSyncTransport) Pull(ctx context.Context, checkpoint string, limit int) (models.PullResponse, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParam("checkpoint", checkpoint).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get("/api/sync/pull")
	if err != nil {
		return models.PullResponse{}, fmt.Errorf("%w: pull request: %w", ErrUnreachable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PullResponse{}, err
	}

	var out models.PullResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return models.PullResponse{}, fmt.Errorf("decode pull response: %w", err)
	}

	return out, nil
}

func (h *httpSyncTransport) Ping(ctx context.Context) error {
	resp, err := h.client.R().SetContext(ctx).Get("/api/health")
	if err != nil {
		return fmt.Errorf("%w: ping request: %w", ErrUnreachable, err)
	}

	return mapHTTPError(resp)
}
