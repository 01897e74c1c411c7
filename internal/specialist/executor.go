package specialist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bidpanel/bidpanel/internal/generation"
	"github.com/bidpanel/bidpanel/internal/metrics"
	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/progress"
)

//go:generate go tool mockgen -destination mocks_test.go -package specialist github.com/bidpanel/bidpanel/internal/generation Client

const (
	// DefaultTimeout bounds one specialist call.
	DefaultTimeout = 30 * time.Second

	defaultTemperature = 0.2

	// Default per-million-token prices used for cost estimation. Overridable
	// per executor for other models.
	defaultPromptPricePerM     = 2.50
	defaultCompletionPricePerM = 10.00
)

// Executor runs one specialist assessment at a time. It is safe for
// concurrent use; the orchestrator shares one executor across all roles.
type Executor struct {
	client   generation.Client
	reporter *progress.Reporter
	recorder *metrics.Recorder
	schema   *jsonschema.Schema
	logger   *slog.Logger

	timeout             time.Duration
	temperature         float64
	promptPricePerM     float64
	completionPricePerM float64
}

type ExecutorOption func(*Executor)

// WithTimeout overrides the per-call budget.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) ExecutorOption {
	return func(e *Executor) { e.temperature = t }
}

// WithPricing sets the per-million-token prices used for cost estimation.
func WithPricing(promptPerM, completionPerM float64) ExecutorOption {
	return func(e *Executor) {
		e.promptPricePerM = promptPerM
		e.completionPricePerM = completionPerM
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExecutor creates an executor. reporter and recorder may be nil, in which
// case progress events and metrics records are dropped.
func NewExecutor(client generation.Client, reporter *progress.Reporter, recorder *metrics.Recorder, opts ...ExecutorOption) (*Executor, error) {
	if client == nil {
		return nil, errors.New("generation client is required")
	}

	schema, err := compileResultSchema()
	if err != nil {
		return nil, err
	}

	e := &Executor{
		client:              client,
		reporter:            reporter,
		recorder:            recorder,
		schema:              schema,
		logger:              slog.Default().With("component", "specialist"),
		timeout:             DefaultTimeout,
		temperature:         defaultTemperature,
		promptPricePerM:     defaultPromptPricePerM,
		completionPricePerM: defaultCompletionPricePerM,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Input carries everything one specialist call needs beyond the role.
type Input struct {
	Context          models.EvaluationContext
	Knowledge        models.KnowledgeContext
	ConnectorContext string
	Standards        []models.ComplianceStandard
}

// Execute runs one role's assessment. It never returns an error: every
// failure collapses to a fallback result with Succeeded=false, and the
// failure category survives only in the result and diagnostics.
func (e *Executor) Execute(ctx context.Context, role models.Role, input Input) models.SpecialistResult {
	start := time.Now()

	e.emit(input.Context, role, progress.StageInProgress, "")

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Complete(ctx, generation.Request{
		System:      buildSystemPrompt(role),
		User:        buildUserMessage(input.Context, input.Knowledge, input.ConnectorContext, input.Standards),
		Temperature: e.temperature,
		ForceJSON:   true,
	})

	duration := time.Since(start)

	if err != nil {
		return e.fail(input.Context, role, duration, err)
	}

	parsed, err := parseResponse(resp.Content, e.schema)
	if err != nil {
		return e.fail(input.Context, role, duration, fmt.Errorf("%w: %w", errMalformedResponse, err))
	}

	scores := toScores(parsed.Scores)

	status := models.VendorStatus(parsed.Status)
	if parsed.Status == "" {
		status = deriveStatus(scores)
	}

	result := models.SpecialistResult{
		Role:       role,
		Insights:   parsed.Insights,
		Scores:     scores,
		Rationale:  parsed.Rationale,
		Status:     status,
		Succeeded:  true,
		DurationMs: duration.Milliseconds(),
		TokensUsed: resp.Usage.TotalTokens,
		CostUSD:    e.estimateCost(resp.Usage),
	}

	e.emit(input.Context, role, progress.StageCompleted, "")
	e.record(role, resp.Model, result, "")

	return result
}

var errMalformedResponse = errors.New("malformed specialist response")

// fail converts any execution failure into the role's fallback result.
func (e *Executor) fail(evalCtx models.EvaluationContext, role models.Role, duration time.Duration, err error) models.SpecialistResult {
	category := categorizeFailure(err)

	e.logger.Warn("specialist execution failed",
		"role", role,
		"vendor", evalCtx.VendorName,
		"category", category,
		"error", err)

	result := models.SpecialistResult{
		Role:            role,
		Insights:        role.FallbackInsights(),
		Scores:          map[models.ScoreKey]float64{models.ScoreOverall: 0},
		Rationale:       fmt.Sprintf("%s assessment could not be completed.", role.DisplayName()),
		Status:          models.StatusUnderReview,
		Succeeded:       false,
		DurationMs:      duration.Milliseconds(),
		FailureCategory: category,
	}

	e.emit(evalCtx, role, progress.StageFailed, err.Error())
	e.record(role, e.client.Model(), result, category)

	return result
}

func (e *Executor) estimateCost(usage generation.Usage) float64 {
	return float64(usage.PromptTokens)*e.promptPricePerM/1e6 +
		float64(usage.CompletionTokens)*e.completionPricePerM/1e6
}

func (e *Executor) emit(evalCtx models.EvaluationContext, role models.Role, stage progress.Stage, message string) {
	if e.reporter == nil {
		return
	}
	e.reporter.Emit(progress.Update{
		ScopeID: evalCtx.ProjectID,
		Vendor:  evalCtx.VendorName,
		Role:    role,
		Stage:   stage,
		Message: message,
		At:      time.Now(),
	})
}

func (e *Executor) record(role models.Role, model string, result models.SpecialistResult, category models.FailureCategory) {
	if e.recorder == nil {
		return
	}
	e.recorder.Record(metrics.Record{
		Role:       role,
		Model:      model,
		DurationMs: result.DurationMs,
		Tokens:     result.TokensUsed,
		CostUSD:    result.CostUSD,
		Success:    result.Succeeded,
		Category:   category,
		At:         time.Now(),
	})
}

func categorizeFailure(err error) models.FailureCategory {
	var statusErr *generation.StatusError
	var jsonErr *json.SyntaxError
	var netErr net.Error

	switch {
	case errors.As(err, &statusErr):
		switch {
		case statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden:
			return models.FailureAuth
		case statusErr.Code == http.StatusTooManyRequests:
			return models.FailureRateLimit
		default:
			return models.FailureUnknown
		}
	case errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.Is(err, errMalformedResponse), errors.As(err, &jsonErr):
		return models.FailureParsing
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return models.FailureTimeout
		}
		return models.FailureNetwork
	default:
		return models.FailureUnknown
	}
}
