// Package config carries the resolved settings for one evaluation run.
// It pairs the loaded spec with run-scoped knobs the CLI sets via flags.
package config

import "github.com/bidpanel/bidpanel/internal/models"

// EvalConfig is the immutable configuration handed to the orchestration
// layer. Construct with [NewEvalConfig]; all fields are read through
// accessors.
type EvalConfig struct {
	spec        *models.EvaluationSpec
	specDir     string
	verbose     bool
	outputPath  string
	logPath     string
	reportDir   string
	bypassCache bool
}

type EvalConfigOption func(*EvalConfig)

// WithSpecDir records the directory the spec file was loaded from, used to
// resolve relative paths inside the spec.
func WithSpecDir(dir string) EvalConfigOption {
	return func(c *EvalConfig) { c.specDir = dir }
}

// WithVerbose enables debug logging.
func WithVerbose(verbose bool) EvalConfigOption {
	return func(c *EvalConfig) { c.verbose = verbose }
}

// WithOutputPath sets where the JSON results are written.
func WithOutputPath(path string) EvalConfigOption {
	return func(c *EvalConfig) { c.outputPath = path }
}

// WithLogPath redirects logs to a file.
func WithLogPath(path string) EvalConfigOption {
	return func(c *EvalConfig) { c.logPath = path }
}

// WithReportDir sets where rendered reports land.
func WithReportDir(dir string) EvalConfigOption {
	return func(c *EvalConfig) { c.reportDir = dir }
}

// WithBypassCache forces fresh connector fetches for this run.
func WithBypassCache(bypass bool) EvalConfigOption {
	return func(c *EvalConfig) { c.bypassCache = bypass }
}

func NewEvalConfig(spec *models.EvaluationSpec, opts ...EvalConfigOption) *EvalConfig {
	cfg := &EvalConfig{spec: spec}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

func (c *EvalConfig) Spec() *models.EvaluationSpec { return c.spec }
func (c *EvalConfig) SpecDir() string              { return c.specDir }
func (c *EvalConfig) Verbose() bool                { return c.verbose }
func (c *EvalConfig) OutputPath() string           { return c.outputPath }
func (c *EvalConfig) LogPath() string              { return c.logPath }
func (c *EvalConfig) ReportDir() string            { return c.reportDir }
func (c *EvalConfig) BypassCache() bool            { return c.bypassCache }
