package dev

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quillfox/devgate/internal/config"
	"github.com/quillfox/devgate/internal/signer"
)

// pluginFor is the fixed client identifier expected by the backend.
const pluginFor = "vscode"

// errorBodyLimit caps how much of a failed response body is read for the
// error message.
const errorBodyLimit = 4 * 1024

// RequestOptions are the per-request knobs forwarded in the "extra"
// payload. Zero values fall back to the configured defaults.
type RequestOptions struct {
	Model    string
	ThreadID string
}

// extraPayload is the backend's nested request options object.
type extraPayload struct {
	SearchMode          string `json:"searchMode"`
	Model               string `json:"model,omitempty"`
	IsExpert            bool   `json:"isExpert"`
	PluginFor           string `json:"pluginFor"`
	PluginAction        string `json:"pluginAction,omitempty"`
	Language            string `json:"language"`
	ProgrammingLanguage string `json:"programmingLanguage,omitempty"`
}

// requestBody is the wire shape of a chat request.
type requestBody struct {
	Content  string       `json:"content"`
	ThreadID string       `json:"threadId,omitempty"`
	Extra    extraPayload `json:"extra"`
}

// Client signs and sends chat requests to the Dev backend.
type Client struct {
	httpClient *http.Client
	signer     signer.Signer
	cfg        config.DevConfig
	logger     *slog.Logger
}

// NewClient builds a backend client. Response compression is disabled so
// SSE chunks arrive as the server flushes them.
func NewClient(cfg config.DevConfig, s signer.Signer, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{DisableCompression: true},
		},
		signer: s,
		cfg:    cfg,
		logger: logger,
	}
}

// BuildRequest assembles a signed POST request for one chat turn. The
// signed tuple is (nonce, timestamp, device id, content) with a fresh
// UUIDv4 nonce and a unix-seconds timestamp.
func (c *Client) BuildRequest(ctx context.Context, content string, opts RequestOptions) (*http.Request, error) {
	nonce := uuid.New().String()
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	sign, err := c.signer.Sign(ctx, nonce, timestamp, c.cfg.DeviceID, content)
	if err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	body := requestBody{
		Content:  content,
		ThreadID: opts.ThreadID,
		Extra: extraPayload{
			SearchMode:          c.cfg.SearchMode,
			Model:               opts.Model,
			IsExpert:            c.cfg.IsExpert,
			PluginFor:           pluginFor,
			PluginAction:        c.cfg.PluginAction,
			Language:            c.cfg.Language,
			ProgrammingLanguage: c.cfg.ProgrammingLanguage,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("device-id", c.cfg.DeviceID)
	req.Header.Set("os-type", c.cfg.OSType)
	req.Header.Set("nonce", nonce)
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("sign", sign)
	req.Header.Set("sid", c.cfg.SID)
	return req, nil
}

// OpenStream sends one chat turn and returns the raw SSE body. The caller
// owns the body and must close it.
func (c *Client) OpenStream(ctx context.Context, content string, opts RequestOptions) (io.ReadCloser, error) {
	req, err := c.BuildRequest(ctx, content, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		resp.Body.Close()
		c.logger.Warn("backend rejected request", "status", resp.StatusCode)
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return resp.Body, nil
}
