// Package api is the pull side of the transport gateway: a thin REST client
// for the stats server. It returns raw payload bytes; normalization happens
// in the service layer.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"battle-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

type StatsClient struct {
	baseURL   string
	accessKey string
	client    *fasthttp.Client
}

func NewStatsClient(cfg *config.Config) *StatsClient {
	return &StatsClient{
		baseURL:   cfg.ServerBaseURL,
		accessKey: cfg.AccessKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// envelope is the common response wrapper of the stats server; some endpoints
// return the payload bare, so Data falls back to the full body.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GetData fetches the full snapshot for the configured access key and returns
// the raw payload bytes.
func (c *StatsClient) GetData(ctx context.Context) ([]byte, error) {
	url := fmt.Sprintf("%s/api/data/%s", c.baseURL, c.accessKey)
	body, err := c.do(ctx, fasthttp.MethodGet, url)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
		return env.Data, nil
	}
	return body, nil
}

// DeleteData clears all server-side data for the access key.
func (c *StatsClient) DeleteData(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/data/%s", c.baseURL, c.accessKey)
	_, err := c.do(ctx, fasthttp.MethodDelete, url)
	return err
}

// DeleteBattle removes one battle on the server.
func (c *StatsClient) DeleteBattle(ctx context.Context, arenaID string) error {
	url := fmt.Sprintf("%s/api/data/%s/battle/%s", c.baseURL, c.accessKey, arenaID)
	_, err := c.do(ctx, fasthttp.MethodDelete, url)
	return err
}

func (c *StatsClient) do(ctx context.Context, method, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("X-API-Key", c.accessKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return nil, fmt.Errorf("stats server error: %d", status)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
