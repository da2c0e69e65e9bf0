package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/config"
	"github.com/lumenstudio/fotofacil/pkg/errors"
)

// Client calls the edge functions of the backend-as-a-service that owns
// orders, payments and delivery links.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new backend client
func NewClient(cfg config.BackendConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		anonKey: cfg.AnonKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// errorEnvelope is the failure shape every function may return, with
// either a 2xx or an error status.
type errorEnvelope struct {
	Error string `json:"error"`
}

// invoke POSTs payload to the named function and decodes the answer into out.
func (c *Client) invoke(ctx context.Context, function string, payload, out interface{}) error {
	url := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, function)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &errors.ErrRemote{Op: function, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.ErrRemote{Op: function, Message: "failed to read response", Err: err}
	}

	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := envelope.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		c.logger.Warn("Backend function failed",
			zap.String("function", function),
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg),
		)
		return &errors.ErrRemote{Op: function, Message: msg}
	}
	if envelope.Error != "" {
		return &errors.ErrRemote{Op: function, Message: envelope.Error}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &errors.ErrRemote{Op: function, Message: "failed to unmarshal response", Err: err}
	}

	return nil
}
