// Package orchestration drives the end-to-end evaluation of one vendor:
// context enrichment, parallel specialist execution, and aggregation.
package orchestration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bidpanel/bidpanel/internal/aggregate"
	"github.com/bidpanel/bidpanel/internal/connectors"
	"github.com/bidpanel/bidpanel/internal/knowledge"
	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/progress"
	"github.com/bidpanel/bidpanel/internal/specialist"
)

const (
	// maxRequirementQueries bounds how many requirement statements feed the
	// knowledge lookup.
	maxRequirementQueries = 5

	// fragmentsPerQuery bounds each statement's contribution so the merged
	// context stays prompt-sized.
	fragmentsPerQuery = 2
)

// Result is everything one evaluation run produces.
type Result struct {
	Evaluation  models.VendorEvaluation
	Diagnostics []models.Diagnostic

	// ConnectorDiagnostics reports per-source fetch failures. Informational:
	// connector failures never block the evaluation.
	ConnectorDiagnostics []models.ConnectorError
}

// Orchestrator evaluates one vendor at a time. Safe for concurrent use
// across vendors; all shared state lives in the injected collaborators.
type Orchestrator struct {
	executor  *specialist.Executor
	retriever *knowledge.Retriever
	fanout    *connectors.Fanout
	reporter  *progress.Reporter
	logger    *slog.Logger
	roles     []models.Role

	bypassConnectorCache bool
}

type Option func(*Orchestrator)

// WithRetriever wires the knowledge backend. Without one, evaluations run
// with no knowledge context.
func WithRetriever(r *knowledge.Retriever) Option {
	return func(o *Orchestrator) { o.retriever = r }
}

// WithFanout wires the external connector component.
func WithFanout(f *connectors.Fanout) Option {
	return func(o *Orchestrator) { o.fanout = f }
}

// WithReporter wires the progress reporter.
func WithReporter(r *progress.Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithBypassConnectorCache forces fresh connector fetches on every
// evaluation instead of serving cached payloads.
func WithBypassConnectorCache(bypass bool) Option {
	return func(o *Orchestrator) { o.bypassConnectorCache = bypass }
}

// WithRoles overrides the default role set. Used in tests.
func WithRoles(roles []models.Role) Option {
	return func(o *Orchestrator) {
		if len(roles) > 0 {
			o.roles = roles
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func New(executor *specialist.Executor, opts ...Option) (*Orchestrator, error) {
	if executor == nil {
		return nil, errors.New("specialist executor is required")
	}

	o := &Orchestrator{
		executor: executor,
		logger:   slog.Default().With("component", "orchestrator"),
		roles:    models.AllRoles(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Evaluate runs the full evaluation for one vendor. Individual specialist
// failures degrade the result but never fail the call; the error return
// covers only the launch machinery itself.
func (o *Orchestrator) Evaluate(ctx context.Context, evalCtx models.EvaluationContext, standards []models.ComplianceStandard) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	for _, role := range o.roles {
		o.emit(evalCtx, role, progress.StagePending)
	}

	knowledgeCtx, roleContexts, connectorDiags := o.enrich(ctx, evalCtx)

	results := o.runSpecialists(ctx, evalCtx, knowledgeCtx, roleContexts, standards)

	evaluation := aggregate.Aggregate(evalCtx.VendorName, results)
	diagnostics := aggregate.BuildDiagnostics(results)

	o.logger.Info("evaluation complete",
		"project", evalCtx.ProjectID,
		"vendor", evalCtx.VendorName,
		"status", evaluation.Status,
		"overall", evaluation.OverallScore,
		"duration", time.Since(start))

	return &Result{
		Evaluation:           evaluation,
		Diagnostics:          diagnostics,
		ConnectorDiagnostics: connectorDiags,
	}, nil
}

// enrich gathers the knowledge context and per-role connector payloads in
// one concurrent batch. Every failure in here degrades to an empty
// contribution.
func (o *Orchestrator) enrich(ctx context.Context, evalCtx models.EvaluationContext) (models.KnowledgeContext, map[models.Role]string, []models.ConnectorError) {
	knowledgeCtx := models.EmptyKnowledgeContext()
	roleContexts := make(map[models.Role]string, len(o.roles))

	var mu sync.Mutex
	var connectorDiags []models.ConnectorError

	g, gctx := errgroup.WithContext(ctx)

	if o.retriever != nil && o.retriever.IsConfigured() && evalCtx.RequirementsSummary != "" {
		g.Go(func() error {
			queries := requirementStatements(evalCtx.RequirementsSummary, maxRequirementQueries)

			kc, err := o.retriever.RetrieveMany(gctx, queries, fragmentsPerQuery)
			if err != nil {
				o.logger.Warn("knowledge retrieval failed, continuing without context",
					"vendor", evalCtx.VendorName, "error", err)
				return nil
			}

			mu.Lock()
			knowledgeCtx = kc
			mu.Unlock()
			return nil
		})
	}

	if o.fanout != nil {
		for _, role := range o.roles {
			g.Go(func() error {
				payload, diags := o.fanout.FetchForRole(gctx, role, evalCtx, connectors.FetchOptions{
					BypassCache: o.bypassConnectorCache,
				})

				mu.Lock()
				if payload != "" {
					roleContexts[role] = payload
				}
				connectorDiags = append(connectorDiags, diags...)
				mu.Unlock()
				return nil
			})
		}
	}

	// enrichment goroutines never return errors; they degrade instead.
	_ = g.Wait()

	return knowledgeCtx, roleContexts, connectorDiags
}

// runSpecialists launches one task per role and waits for all of them to
// settle. The executor converts every failure into a fallback result, so
// the returned slice always has one entry per role, in role order.
func (o *Orchestrator) runSpecialists(ctx context.Context, evalCtx models.EvaluationContext, knowledgeCtx models.KnowledgeContext, roleContexts map[models.Role]string, standards []models.ComplianceStandard) []models.SpecialistResult {
	results := make([]models.SpecialistResult, len(o.roles))

	var wg sync.WaitGroup

	for i, role := range o.roles {
		wg.Add(1)
		go func(idx int, role models.Role) {
			defer wg.Done()

			results[idx] = o.executor.Execute(ctx, role, specialist.Input{
				Context:          evalCtx,
				Knowledge:        knowledgeCtx,
				ConnectorContext: roleContexts[role],
				Standards:        standards,
			})
		}(i, role)
	}

	wg.Wait()

	return results
}

func (o *Orchestrator) emit(evalCtx models.EvaluationContext, role models.Role, stage progress.Stage) {
	if o.reporter == nil {
		return
	}
	o.reporter.Emit(progress.Update{
		ScopeID: evalCtx.ProjectID,
		Vendor:  evalCtx.VendorName,
		Role:    role,
		Stage:   stage,
		At:      time.Now(),
	})
}

// requirementStatements splits a requirements summary into up to limit
// standalone statements: one per non-empty line, falling back to sentence
// splitting when the summary is a single block of prose.
func requirementStatements(summary string, limit int) []string {
	var statements []string

	for _, line := range strings.Split(summary, "\n") {
		line = stripBullet(strings.TrimSpace(line))
		if line != "" {
			statements = append(statements, line)
		}
	}

	if len(statements) <= 1 {
		statements = statements[:0]
		for _, sentence := range strings.Split(summary, ". ") {
			sentence = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sentence), "."))
			if sentence != "" {
				statements = append(statements, sentence)
			}
		}
	}

	if len(statements) > limit {
		statements = statements[:limit]
	}

	return statements
}

// stripBullet removes a leading list marker ("-", "*", "•", "3.", "3)").
func stripBullet(line string) string {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		return strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "* "); ok {
		return strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "• "); ok {
		return strings.TrimSpace(rest)
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}

	return line
}
