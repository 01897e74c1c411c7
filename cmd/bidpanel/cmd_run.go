package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bidpanel/bidpanel/internal/cache"
	"github.com/bidpanel/bidpanel/internal/config"
	"github.com/bidpanel/bidpanel/internal/connectors"
	"github.com/bidpanel/bidpanel/internal/generation"
	"github.com/bidpanel/bidpanel/internal/knowledge"
	"github.com/bidpanel/bidpanel/internal/metrics"
	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/orchestration"
	"github.com/bidpanel/bidpanel/internal/progress"
	"github.com/bidpanel/bidpanel/internal/reporting"
	"github.com/bidpanel/bidpanel/internal/search"
	"github.com/bidpanel/bidpanel/internal/specialist"
	"github.com/bidpanel/bidpanel/internal/spinner"
	"github.com/bidpanel/bidpanel/internal/standards"
	"github.com/bidpanel/bidpanel/internal/utils"
)

var (
	outputPath    string
	reportDir     string
	verbose       bool
	bypassCache   bool
	archivePath   string
	standardsPath string
	blobURL       string
	blobContainer string
	blobName      string
	vendorFilters []string
	modelOverride string
	logFilePath   string
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <eval.yaml>",
		Short: "Run a vendor proposal evaluation",
		Long: `Run a vendor proposal evaluation from a spec file.

The spec file names the project, its requirements summary, the vendors under
evaluation, and the engine settings. Compliance standards and external
connector configuration can live in the spec or in a separate bundle loaded
with --standards or --standards-blob.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output JSON file for results")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "Directory for per-vendor markdown and HTML reports")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with live per-specialist progress")
	cmd.Flags().BoolVar(&bypassCache, "no-cache", false, "Bypass the external connector payload cache")
	cmd.Flags().StringVar(&archivePath, "archive", "", "Write a compressed archive of results and reports")
	cmd.Flags().StringVar(&standardsPath, "standards", "", "YAML bundle of compliance standards and connectors")
	cmd.Flags().StringVar(&blobURL, "standards-blob", "", "Azure Blob service or SAS URL holding the standards bundle")
	cmd.Flags().StringVar(&blobContainer, "standards-container", "standards", "Blob container name (requires --standards-blob)")
	cmd.Flags().StringVar(&blobName, "standards-blob-name", "standards.yaml", "Blob name (requires --standards-blob)")
	cmd.Flags().StringArrayVar(&vendorFilters, "vendor", nil, "Evaluate only the named vendor (can be repeated)")
	cmd.Flags().StringVar(&modelOverride, "model", "", "Model to use (overrides spec config)")
	cmd.Flags().StringVar(&logFilePath, "log-file", "", "Write structured logs to a file instead of stderr")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	specPath := args[0]

	spec, err := models.LoadEvaluationSpec(specPath)
	if err != nil {
		return fmt.Errorf("failed to load spec: %w", err)
	}

	if modelOverride != "" {
		spec.Config.ModelID = modelOverride
	}

	specDir := filepath.Dir(specPath)
	if abs, err := filepath.Abs(specDir); err == nil {
		specDir = abs
	}

	cfg := config.NewEvalConfig(spec,
		config.WithSpecDir(specDir),
		config.WithVerbose(verbose),
		config.WithOutputPath(outputPath),
		config.WithReportDir(reportDir),
		config.WithBypassCache(bypassCache),
		config.WithLogPath(logFilePath),
	)

	restoreLogs, err := redirectLogs(cfg)
	if err != nil {
		return err
	}
	if restoreLogs != nil {
		defer restoreLogs()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Merge the external standards bundle into the spec, if one was given.
	if err := loadStandardsBundle(ctx, spec); err != nil {
		return err
	}

	client, shutdown, err := buildEngine(spec.Config)
	if err != nil {
		return err
	}
	if shutdown != nil {
		defer shutdown()
	}

	retriever, err := buildRetriever(cfg)
	if err != nil {
		return err
	}

	payloads, err := cache.New[models.ConnectorPayload](0)
	if err != nil {
		return fmt.Errorf("creating connector cache: %w", err)
	}
	fanout := connectors.NewFanout(spec.Connectors, payloads)

	reporter := progress.NewReporter()
	recorder := metrics.NewRecorder()

	execOpts := []specialist.ExecutorOption{}
	if spec.Config.TimeoutSec > 0 {
		execOpts = append(execOpts, specialist.WithTimeout(time.Duration(spec.Config.TimeoutSec)*time.Second))
	}
	if spec.Config.Temperature > 0 {
		execOpts = append(execOpts, specialist.WithTemperature(spec.Config.Temperature))
	}
	executor, err := specialist.NewExecutor(client, reporter, recorder, execOpts...)
	if err != nil {
		return fmt.Errorf("creating specialist executor: %w", err)
	}

	orch, err := orchestration.New(executor,
		orchestration.WithRetriever(retriever),
		orchestration.WithFanout(fanout),
		orchestration.WithReporter(reporter),
		orchestration.WithBypassConnectorCache(cfg.BypassCache()),
	)
	if err != nil {
		return err
	}

	vendors, err := orchestration.FilterVendors(spec.Vendors, vendorFilters)
	if err != nil {
		return err
	}
	if len(vendors) == 0 {
		return fmt.Errorf("no vendors match the given filters")
	}

	fmt.Printf("Running evaluation: %s\n", spec.Name)
	fmt.Printf("Engine: %s\n", spec.Config.EngineType)
	fmt.Printf("Model: %s\n", spec.Config.ModelID)
	fmt.Printf("Vendors: %d\n", len(vendors))
	fmt.Println()

	results := &reporting.RunResults{
		Project:     spec.Name,
		GeneratedAt: time.Now().UTC(),
	}
	riskFlagged := 0

	for _, vendor := range vendors {
		evalCtx := models.EvaluationContext{
			ProjectID:           spec.Name,
			VendorName:          vendor.Name,
			RequirementsSummary: spec.Requirements,
			TechnicalApproach:   vendor.TechnicalApproach,
		}

		unsubscribe := subscribeProgress(reporter, spec.Name, cfg.Verbose())

		stopSpinner := func() {}
		if !cfg.Verbose() && isTerminal() {
			stopSpinner = spinner.Start(os.Stdout, fmt.Sprintf("Evaluating %s", vendor.Name))
		}

		res, err := orch.Evaluate(ctx, evalCtx, spec.Standards)
		stopSpinner()
		unsubscribe()
		if err != nil {
			return fmt.Errorf("evaluating vendor %s: %w", vendor.Name, err)
		}

		printVendorSummary(cmd.OutOrStdout(), &res.Evaluation, res.Diagnostics)

		results.Vendors = append(results.Vendors, reporting.VendorResult{
			Evaluation:  res.Evaluation,
			Diagnostics: res.Diagnostics,
		})
		for _, ce := range res.ConnectorDiagnostics {
			results.Connectors = append(results.Connectors, reporting.ConnectorFailure{
				Vendor: vendor.Name,
				Error:  ce,
			})
		}
		if res.Evaluation.Status == models.StatusRiskFlagged {
			riskFlagged++
		}

		reporter.ClearScope(spec.Name)
	}

	summary := recorder.Summarize()
	results.Metrics = &summary

	written, err := writeOutputs(cfg, results)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Printf("Wrote: %s\n", path)
	}

	if riskFlagged > 0 {
		return &RiskFlaggedError{
			Message: fmt.Sprintf("evaluation completed with %d of %d vendor(s) risk-flagged", riskFlagged, len(vendors)),
		}
	}

	return nil
}

// loadStandardsBundle resolves --standards / --standards-blob and appends the
// bundle's standards and active connectors to the spec's own.
func loadStandardsBundle(ctx context.Context, spec *models.EvaluationSpec) error {
	var source standards.Source

	switch {
	case standardsPath != "" && blobURL != "":
		return fmt.Errorf("--standards and --standards-blob are mutually exclusive")
	case standardsPath != "":
		source = &standards.FileSource{Path: standardsPath}
	case blobURL != "":
		blobSource, err := standards.NewBlobSource(standards.BlobSourceConfig{
			SASURL:    blobURL,
			Container: blobContainer,
			BlobName:  blobName,
		})
		if err != nil {
			return fmt.Errorf("configuring standards blob source: %w", err)
		}
		source = blobSource
	default:
		return nil
	}

	bundle, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading standards bundle: %w", err)
	}

	spec.Standards = append(spec.Standards, bundle.Standards...)
	spec.Connectors = append(spec.Connectors, bundle.ActiveConnectors()...)
	return nil
}

// buildEngine creates the generation client for the spec's engine type. The
// returned shutdown func is nil when the engine needs no teardown.
func buildEngine(cfg models.EngineConfig) (generation.Client, func(), error) {
	switch cfg.EngineType {
	case "mock":
		return generation.NewMockClient(cfg.ModelID), nil, nil
	case "openai":
		apiKey := ""
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}
		client, err := generation.NewOpenAIClient(generation.OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  apiKey,
			Model:   cfg.ModelID,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating openai client: %w", err)
		}
		return client, nil, nil
	case "copilot-sdk":
		client := generation.NewCopilotClient(cfg.ModelID, nil)
		shutdown := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = client.Shutdown(shutdownCtx)
		}
		return client, shutdown, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine type: %s", cfg.EngineType)
	}
}

// buildRetriever assembles the knowledge retriever from the spec's search
// configuration. A spec with no search section yields an unconfigured
// retriever, which the orchestrator soft-skips.
func buildRetriever(cfg *config.EvalConfig) (*knowledge.Retriever, error) {
	sc := cfg.Spec().Search

	var embedder search.Embedder
	if sc.EmbeddingURL != "" {
		apiKey := ""
		if sc.APIKeyEnv != "" {
			apiKey = os.Getenv(sc.APIKeyEnv)
		}
		e, err := search.NewOpenAIEmbedder(search.EmbedderConfig{
			Model:   sc.EmbeddingModel,
			APIKey:  apiKey,
			BaseURL: sc.EmbeddingURL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedder: %w", err)
		}
		embedder = e
	}

	switch {
	case sc.Endpoint != "":
		apiKey := ""
		if sc.APIKeyEnv != "" {
			apiKey = os.Getenv(sc.APIKeyEnv)
		}
		primary, err := search.NewAzureBackend(search.AzureConfig{
			Endpoint:  sc.Endpoint,
			IndexName: sc.Index,
			APIKey:    apiKey,
		}, embedder)
		if err != nil {
			return nil, fmt.Errorf("creating search backend: %w", err)
		}

		opts := []knowledge.RetrieverOption{}
		if sc.SecondaryIndex != "" {
			secondary, err := search.NewAzureBackend(search.AzureConfig{
				Endpoint:  sc.Endpoint,
				IndexName: sc.SecondaryIndex,
				APIKey:    apiKey,
			}, embedder)
			if err != nil {
				return nil, fmt.Errorf("creating secondary search backend: %w", err)
			}
			opts = append(opts, knowledge.WithSecondary(secondary))
		}
		return knowledge.NewRetriever(primary, opts...), nil

	case sc.LocalPath != "":
		persistPath := utils.ResolvePath(sc.LocalPath, cfg.SpecDir())
		backend, err := search.NewChromemBackend("knowledge", persistPath, embedder)
		if err != nil {
			return nil, fmt.Errorf("opening local vector store: %w", err)
		}
		return knowledge.NewRetriever(backend), nil

	default:
		return knowledge.NewRetriever(nil), nil
	}
}

// writeOutputs persists the run results, per-vendor reports, and the archive
// as requested by the config. Returns the paths written.
func writeOutputs(cfg *config.EvalConfig, results *reporting.RunResults) ([]string, error) {
	var written []string

	if cfg.OutputPath() != "" {
		if err := reporting.WriteResults(cfg.OutputPath(), results); err != nil {
			return nil, err
		}
		written = append(written, cfg.OutputPath())
	}

	if cfg.ReportDir() != "" {
		if err := os.MkdirAll(cfg.ReportDir(), 0o755); err != nil {
			return nil, fmt.Errorf("creating report directory: %w", err)
		}
		for i := range results.Vendors {
			vr := &results.Vendors[i]
			base := filepath.Join(cfg.ReportDir(), sanitizeFileName(vr.Evaluation.VendorName))

			md := reporting.FormatMarkdown(&vr.Evaluation, vr.Diagnostics)
			if err := os.WriteFile(base+".md", []byte(md), 0o644); err != nil {
				return nil, fmt.Errorf("writing markdown report: %w", err)
			}
			written = append(written, base+".md")

			html, err := reporting.RenderHTML(&vr.Evaluation, vr.Diagnostics)
			if err != nil {
				return nil, fmt.Errorf("rendering HTML report: %w", err)
			}
			if err := os.WriteFile(base+".html", html, 0o644); err != nil {
				return nil, fmt.Errorf("writing HTML report: %w", err)
			}
			written = append(written, base+".html")
		}
	}

	if archivePath != "" {
		if len(written) == 0 {
			return nil, fmt.Errorf("--archive requires --output or --report-dir")
		}
		if err := reporting.WriteArchive(archivePath, written); err != nil {
			return nil, fmt.Errorf("writing archive: %w", err)
		}
		written = append(written, archivePath)
	}

	return written, nil
}

// redirectLogs sends slog output to the configured log file for the duration
// of the run. The returned restore function reinstates the previous logger
// and closes the file; it is nil when no log file was requested.
func redirectLogs(cfg *config.EvalConfig) (restore func(), err error) {
	path := cfg.LogPath()
	if path == "" {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Verbose() {
		level = slog.LevelDebug
	}

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})))

	return func() {
		slog.SetDefault(prev)
		_ = f.Close()
	}, nil
}

// sanitizeFileName replaces characters that are invalid in filenames.
func sanitizeFileName(name string) string {
	r := []rune(name)
	for i, c := range r {
		switch c {
		case '/', '\\', ':', ' ':
			r[i] = '-'
		}
	}
	return string(r)
}
