// Package erp provides read-only connectivity to the external
// order-management system. All access goes through bulk "search and read"
// queries; this service never writes back to the ERP.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/config"
	"go.uber.org/zap"
)

const (
	// Default retry configuration for the startup connection check
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultBackoffFactor  = 2.0

	// Default health check timeout
	defaultHealthCheckTimeout = 5 * time.Second
)

// Or is the logical OR prefix operator of the upstream filter language.
// It joins the two conditions that follow it.
const Or = "|"

// Filter is an upstream filter expression: a sequence of field/operator/value
// triples with implicit conjunction and explicit prefix operators.
type Filter []any

// Cond builds one field/operator/value triple.
func Cond(field, operator string, value any) any {
	return []any{field, operator, value}
}

// Client speaks JSON-RPC to the order-management system. It authenticates
// once at startup and keeps the resulting session user id for later calls.
type Client struct {
	httpClient     *http.Client
	cfg            *config.ERPConfig
	logger         *zap.Logger
	endpoint       string
	uid            int64
	requestTimeout time.Duration
	nextID         atomic.Int64
}

// HealthStatus represents the health check result for the ERP connection
type HealthStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
		Debug   string `json:"debug"`
	} `json:"data"`
}

func (e *rpcError) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Data.Message)
	}
	return e.Message
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// NewClient creates a new ERP client and verifies connectivity by
// authenticating against the upstream, with retry for transient failures.
func NewClient(cfg *config.ERPConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ERP configuration is required")
	}

	logger.Info("Initializing ERP connection",
		zap.String("url", cfg.URL),
		zap.String("database", cfg.Database),
		zap.Int("request_timeout_seconds", cfg.RequestTimeout),
	)

	c := &Client{
		httpClient:     &http.Client{},
		cfg:            cfg,
		logger:         logger,
		endpoint:       cfg.URL + "/jsonrpc",
		requestTimeout: cfg.RequestTimeoutDuration(),
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = 60 * time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var err error
	backoff := defaultInitialBackoff
	for attempt := 1; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
		err = c.authenticate(ctx)
		cancel()
		if err == nil {
			logger.Info("ERP connection established",
				zap.Int64("uid", c.uid),
				zap.Int("attempts_taken", attempt),
			)
			return c, nil
		}

		logger.Warn("ERP authentication failed",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxRetries),
		)
		if attempt < maxRetries {
			time.Sleep(backoff)
			backoff = min(time.Duration(float64(backoff)*defaultBackoffFactor), defaultMaxBackoff)
		}
	}

	return nil, fmt.Errorf("failed to connect to ERP after %d attempts: %w", maxRetries, err)
}

// authenticate resolves the session user id for the configured login.
func (c *Client) authenticate(ctx context.Context) error {
	result, err := c.call(ctx, "common", "authenticate",
		[]any{c.cfg.Database, c.cfg.User, c.cfg.Password, map[string]any{}})
	if err != nil {
		return err
	}

	// The upstream answers false (not an error) on bad credentials
	var uid int64
	if err := json.Unmarshal(result, &uid); err != nil || uid == 0 {
		return fmt.Errorf("ERP rejected credentials for user %q", c.cfg.User)
	}
	c.uid = uid
	return nil
}

// call performs one JSON-RPC round trip.
func (c *Client) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ERP call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ERP returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("malformed ERP response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("ERP error: %w", rpcResp.Error)
	}

	return rpcResp.Result, nil
}

// SearchRead executes a bulk search-and-read query against one record kind.
// A limit of 0 means no row limit. Relational fields come back as
// [id, displayName] pairs inside each record.
func (c *Client) SearchRead(ctx context.Context, model string, filter Filter, fields []string, limit int) ([]Record, error) {
	if c == nil {
		return nil, fmt.Errorf("ERP client not initialized")
	}

	opts := map[string]any{"fields": fields}
	if limit > 0 {
		opts["limit"] = limit
	}
	if filter == nil {
		filter = Filter{}
	}

	start := time.Now()
	result, err := c.call(ctx, "object", "execute_kw", []any{
		c.cfg.Database, c.uid, c.cfg.Password,
		model, "search_read",
		[]any{[]any(filter)}, opts,
	})
	if err != nil {
		c.logger.Error("ERP search_read failed",
			zap.String("model", model),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, fmt.Errorf("search_read %s: %w", model, err)
	}

	var records []Record
	if err := json.Unmarshal(result, &records); err != nil {
		return nil, fmt.Errorf("search_read %s: unexpected result shape: %w", model, err)
	}

	c.logger.Debug("ERP search_read completed",
		zap.String("model", model),
		zap.Int("rows_returned", len(records)),
		zap.Duration("duration", time.Since(start)),
	)

	return records, nil
}

// HealthCheck verifies the upstream is reachable by asking for its version.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	if c == nil {
		return &HealthStatus{Status: "disabled"}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultHealthCheckTimeout)
		defer cancel()
	}

	start := time.Now()
	_, err := c.call(ctx, "common", "version", []any{})
	latency := time.Since(start)

	status := &HealthStatus{LatencyMs: latency.Milliseconds()}
	if err != nil {
		c.logger.Warn("ERP health check failed",
			zap.Error(err),
			zap.Duration("latency", latency),
		)
		status.Status = "unhealthy"
		status.Error = err.Error()
	} else {
		status.Status = "healthy"
	}
	return status
}

// Close releases idle upstream connections. Called during shutdown.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.logger.Info("Closing ERP connection")
	c.httpClient.CloseIdleConnections()
}
