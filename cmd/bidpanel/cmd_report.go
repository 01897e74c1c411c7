package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bidpanel/bidpanel/internal/reporting"
)

var (
	reportFormat string
	reportOutDir string
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <results.json|archive.tar.zst>",
		Short: "Re-render reports from saved results",
		Long: `Re-render vendor reports from a saved results file or archive.

Reads the JSON results written by 'run --output' (or an archive written by
'run --archive') and renders per-vendor reports without re-evaluating.`,
		Args: cobra.ExactArgs(1),
		RunE: reportCommandE,
	}

	cmd.Flags().StringVar(&reportFormat, "format", "markdown", "Report format: markdown, html")
	cmd.Flags().StringVarP(&reportOutDir, "out", "d", "", "Directory for report files (default: print markdown to stdout)")

	return cmd
}

func reportCommandE(cmd *cobra.Command, args []string) error {
	results, err := loadRunResults(args[0])
	if err != nil {
		return err
	}

	if reportFormat != "markdown" && reportFormat != "html" {
		return fmt.Errorf("unknown report format: %s (supported: markdown, html)", reportFormat)
	}

	if reportOutDir == "" {
		if reportFormat != "markdown" {
			return fmt.Errorf("--out is required for %s output", reportFormat)
		}
		for i := range results.Vendors {
			vr := &results.Vendors[i]
			fmt.Fprint(cmd.OutOrStdout(), reporting.FormatMarkdown(&vr.Evaluation, vr.Diagnostics))
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	}

	if err := os.MkdirAll(reportOutDir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	for i := range results.Vendors {
		vr := &results.Vendors[i]
		base := filepath.Join(reportOutDir, sanitizeFileName(vr.Evaluation.VendorName))

		var path string
		switch reportFormat {
		case "markdown":
			path = base + ".md"
			md := reporting.FormatMarkdown(&vr.Evaluation, vr.Diagnostics)
			if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
		case "html":
			path = base + ".html"
			html, err := reporting.RenderHTML(&vr.Evaluation, vr.Diagnostics)
			if err != nil {
				return fmt.Errorf("rendering report: %w", err)
			}
			if err := os.WriteFile(path, html, 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
		}
		fmt.Printf("Wrote: %s\n", path)
	}

	return nil
}

// loadRunResults reads results from a plain JSON file or from the first JSON
// entry of a results archive.
func loadRunResults(path string) (*reporting.RunResults, error) {
	if strings.HasSuffix(path, ".tar.zst") || strings.HasSuffix(path, ".tzst") {
		entries, err := reporting.ReadArchive(path)
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		for name, data := range entries {
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			var results reporting.RunResults
			if err := json.Unmarshal(data, &results); err != nil {
				return nil, fmt.Errorf("parsing %s from archive: %w", name, err)
			}
			return &results, nil
		}
		return nil, fmt.Errorf("archive %s contains no results JSON", path)
	}

	return reporting.LoadResults(path)
}
