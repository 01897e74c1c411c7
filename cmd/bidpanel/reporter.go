package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/progress"
	"github.com/bidpanel/bidpanel/internal/reporting"
)

// formatDuration formats a duration in a consistent, human-readable way.
// This ensures stable output regardless of Go version changes.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.String()
}

func stageIcon(stage progress.Stage) string {
	switch stage {
	case progress.StagePending:
		return "·"
	case progress.StageInProgress:
		return "…"
	case progress.StageCompleted:
		return "✓"
	case progress.StageFailed:
		return "✗"
	}
	return "?"
}

// subscribeProgress attaches a per-update listener for the given scope and
// returns its unsubscribe func. Only verbose mode streams transitions; the
// default mode shows a spinner instead, and CI logs stay quiet.
func subscribeProgress(reporter *progress.Reporter, scopeID string, verbose bool) func() {
	if !verbose {
		return func() {}
	}
	return reporter.Subscribe(scopeID, verboseProgressListener)
}

func verboseProgressListener(u progress.Update) {
	fmt.Printf("  %s %-12s %s %s\n", stageIcon(u.Stage), u.Role, u.Vendor, u.Message)
}

// isTerminal reports whether stdout is attached to a terminal. Wide tables
// are only worth aligning for humans.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

// truncateName shortens a name to maxLen runes, replacing the last rune with
// "…" if needed.
func truncateName(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-1]) + "…"
}

// printVendorSummary renders one vendor's consensus result and per-role
// diagnostics as an aligned table.
func printVendorSummary(w io.Writer, eval *models.VendorEvaluation, diags []models.Diagnostic) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, " %s\n", truncateName(eval.VendorName, 58))
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, " Status:  %s (%s)\n", eval.Status, reporting.InterpretStatus(eval.Status))
	fmt.Fprintf(w, " Overall: %.1f — %s\n", eval.OverallScore, reporting.InterpretScore(eval.OverallScore))
	fmt.Fprintf(w, " Cost:    %s\n", eval.Cost)
	fmt.Fprintln(w)

	sorted := make([]models.Diagnostic, len(diags))
	copy(sorted, diags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Role < sorted[j].Role })

	fmt.Fprintf(w, " %s %s %s %s\n",
		padRight("Specialist", 22), padRight("Status", 9), padRight("Duration", 10), "Tokens")
	for _, d := range sorted {
		duration := formatDuration(time.Duration(d.DurationMs) * time.Millisecond)
		fmt.Fprintf(w, " %s %s %s %d\n",
			padRight(truncateName(d.Role.DisplayName(), 22), 22),
			padRight(string(d.Status), 9),
			padRight(duration, 10),
			d.TokensUsed)
		if d.Error != "" {
			fmt.Fprintf(w, "   %s\n", d.Error)
		}
	}
	fmt.Fprintln(w)
}
