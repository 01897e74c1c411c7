// Package connectors queries the external data sources mapped to each
// specialist role, normalizes their heterogeneous responses into role-scoped
// text, and isolates per-source failures as data.
package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bidpanel/bidpanel/internal/cache"
	"github.com/bidpanel/bidpanel/internal/models"
)

const (
	// DefaultTimeout bounds one connector call.
	DefaultTimeout = 10 * time.Second

	// DefaultCacheTTL is how long a normalized payload stays cached.
	DefaultCacheTTL = 5 * time.Minute

	maxResponseBytes = 1 << 20 // 1 MiB cap on connector responses
)

// Fanout queries every active connector mapped to a role. One failing
// connector never aborts its siblings or the caller.
type Fanout struct {
	connectors []models.ConnectorConfig
	httpClient *http.Client
	payloads   *cache.Cache[models.ConnectorPayload]
	timeout    time.Duration
	cacheTTL   time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithTimeout replaces the per-connector timeout.
func WithTimeout(d time.Duration) FanoutOption {
	return func(f *Fanout) {
		f.timeout = d
	}
}

// WithCacheTTL replaces the payload cache TTL.
func WithCacheTTL(d time.Duration) FanoutOption {
	return func(f *Fanout) {
		f.cacheTTL = d
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) FanoutOption {
	return func(f *Fanout) {
		f.httpClient = c
	}
}

// WithFanoutLogger replaces the default logger.
func WithFanoutLogger(logger *slog.Logger) FanoutOption {
	return func(f *Fanout) {
		f.logger = logger
	}
}

// NewFanout creates a fan-out over the supplied connector configurations.
// The payload cache is shared across concurrent evaluations.
func NewFanout(configs []models.ConnectorConfig, payloads *cache.Cache[models.ConnectorPayload], opts ...FanoutOption) *Fanout {
	f := &Fanout{
		connectors: configs,
		httpClient: &http.Client{},
		payloads:   payloads,
		timeout:    DefaultTimeout,
		cacheTTL:   DefaultCacheTTL,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchOptions tunes one FetchForRole call.
type FetchOptions struct {
	// BypassCache forces fresh connector calls, used for diagnostics.
	BypassCache bool
}

// FetchForRole queries every active connector mapped to the role and combines
// the successful payloads with a blank-line separator, in configuration
// order. Failures come back as ConnectorError values.
func (f *Fanout) FetchForRole(ctx context.Context, role models.Role, evalCtx models.EvaluationContext, opts FetchOptions) (string, []models.ConnectorError) {
	selected := f.forRole(role)
	if len(selected) == 0 {
		return "", nil
	}

	texts := make([]string, len(selected))
	failures := make([]*models.ConnectorError, len(selected))

	var wg sync.WaitGroup
	for i, cfg := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, cerr := f.fetchOne(ctx, cfg, role, evalCtx, opts)
			texts[i] = text
			failures[i] = cerr
		}()
	}
	wg.Wait()

	var parts []string
	var diags []models.ConnectorError
	for i := range selected {
		if failures[i] != nil {
			diags = append(diags, *failures[i])
			continue
		}
		if texts[i] != "" {
			parts = append(parts, texts[i])
		}
	}

	return strings.Join(parts, "\n\n"), diags
}

// forRole selects the active connectors mapped to the role, preserving
// configuration order.
func (f *Fanout) forRole(role models.Role) []models.ConnectorConfig {
	var out []models.ConnectorConfig
	for _, c := range f.connectors {
		if c.Active && c.MappedToRole(role) {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fanout) fetchOne(ctx context.Context, cfg models.ConnectorConfig, role models.Role, evalCtx models.EvaluationContext, opts FetchOptions) (string, *models.ConnectorError) {
	key := cache.Key(cfg.ID, evalCtx.VendorName, evalCtx.ProjectID, string(role))

	if !opts.BypassCache && f.payloads != nil {
		if payload, ok := f.payloads.Get(key); ok {
			return payload.Text, nil
		}
	}

	text, err := f.query(ctx, cfg, role, evalCtx)
	if err != nil {
		cerr := &models.ConnectorError{
			Connector: cfg.ID,
			Category:  categorize(err),
			Message:   err.Error(),
			At:        f.now().UTC(),
		}
		f.logger.Warn("connector query failed",
			"connector", cfg.ID, "role", role, "category", cerr.Category, "error", err)
		return "", cerr
	}

	if f.payloads != nil {
		f.payloads.PutTTL(key, models.ConnectorPayload{
			Connector: cfg.ID,
			Roles:     []models.Role{role},
			Text:      text,
			FetchedAt: f.now().UTC(),
			TTL:       f.cacheTTL,
		}, f.cacheTTL)
	}

	return text, nil
}

type connectorRequest struct {
	Query   string `json:"query"`
	Vendor  string `json:"vendor"`
	Project string `json:"project"`
	Role    string `json:"role"`
}

func (f *Fanout) query(ctx context.Context, cfg models.ConnectorConfig, role models.Role, evalCtx models.EvaluationContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := json.Marshal(connectorRequest{
		Query:   fmt.Sprintf("%s assessment of vendor %s", role.DisplayName(), evalCtx.VendorName),
		Vendor:  evalCtx.VendorName,
		Project: evalCtx.ProjectID,
		Role:    string(role),
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream, text/plain")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: truncate(string(raw), 256)}
	}

	text, err := normalize(raw, role)
	if err != nil {
		return "", fmt.Errorf("normalizing response: %w", err)
	}
	return text, nil
}

// statusError carries a non-200 connector response for categorization.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("connector returned status %d: %s", e.code, e.body)
}

// categorize maps a connector failure to its reported category.
func categorize(err error) models.FailureCategory {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			return models.FailureAuth
		case se.code == http.StatusTooManyRequests:
			return models.FailureRateLimit
		default:
			return models.FailureUnknown
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTimeout
	}

	var jsonErr *json.SyntaxError
	if errors.As(err, &jsonErr) {
		return models.FailureParsing
	}

	// url.Error wraps transport-level failures, including timeouts.
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.FailureTimeout
		}
		return models.FailureNetwork
	}

	return models.FailureUnknown
}
