// Package reporting renders vendor evaluations for human consumption:
// plain-language interpretation, a markdown report, and an HTML rendering.
package reporting

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/bidpanel/bidpanel/internal/models"
)

// InterpretScore returns a plain-language label for a 0-100 score.
func InterpretScore(score float64) string {
	switch {
	case score >= 80:
		return "Strong fit (80+)"
	case score >= 65:
		return "Good fit (65-79)"
	case score >= 45:
		return "Partial fit (45-64)"
	default:
		return "Poor fit (<45)"
	}
}

// InterpretStatus explains the consensus verdict.
func InterpretStatus(status models.VendorStatus) string {
	switch status {
	case models.StatusRecommended:
		return "A majority of specialists recommend this vendor."
	case models.StatusRiskFlagged:
		return "Multiple specialists flagged significant risks. Review the role insights before proceeding."
	default:
		return "The panel did not reach a clear verdict. Manual review is advised."
	}
}

// FormatMarkdown produces a full markdown report for one evaluation.
func FormatMarkdown(eval *models.VendorEvaluation, diags []models.Diagnostic) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Evaluation: %s\n\n", eval.VendorName)
	fmt.Fprintf(&b, "**Overall score:** %.1f — %s\n\n", eval.OverallScore, InterpretScore(eval.OverallScore))
	fmt.Fprintf(&b, "**Status:** %s — %s\n\n", eval.Status, InterpretStatus(eval.Status))
	fmt.Fprintf(&b, "**Estimated cost:** %s\n\n", eval.Cost)

	if len(eval.Breakdown) > 0 {
		b.WriteString("## Score breakdown\n\n")
		b.WriteString("| Dimension | Average | Contributors |\n")
		b.WriteString("|---|---|---|\n")
		for _, bd := range eval.Breakdown {
			fmt.Fprintf(&b, "| %s | %.1f | %d |\n", bd.Key, bd.Average, bd.Contributors)
		}
		b.WriteString("\n")
	}

	if eval.Rationale != "" {
		b.WriteString("## Rationale\n\n")
		b.WriteString(eval.Rationale)
		b.WriteString("\n\n")
	}

	b.WriteString("## Specialist insights\n\n")
	for _, role := range sortedRoles(eval.RoleInsights) {
		fmt.Fprintf(&b, "### %s\n\n", role.DisplayName())
		for _, insight := range eval.RoleInsights[role] {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		b.WriteString("\n")
	}

	if len(diags) > 0 {
		b.WriteString("## Execution diagnostics\n\n")
		b.WriteString("| Role | Status | Duration | Tokens | Cost |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, d := range diags {
			fmt.Fprintf(&b, "| %s | %s | %dms | %d | $%.4f |\n",
				d.Role.DisplayName(), d.Status, d.DurationMs, d.TokensUsed, d.CostUSD)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\nGenerated %s\n", eval.Timestamp.Format("2006-01-02 15:04 UTC"))

	return b.String()
}

// htmlShell wraps the rendered body so the report is a standalone page.
const htmlShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 56rem; margin: 2rem auto; padding: 0 1rem; color: #1a1a2e; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.35rem 0.7rem; text-align: left; }
</style>
</head>
<body>
%s</body>
</html>
`

// RenderHTML converts the markdown report into a standalone HTML page.
func RenderHTML(eval *models.VendorEvaluation, diags []models.Diagnostic) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(FormatMarkdown(eval, diags)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	title := fmt.Sprintf("Evaluation: %s", eval.VendorName)
	return fmt.Appendf(nil, htmlShell, title, body.String()), nil
}

// sortedRoles keeps the configured presentation order and appends any
// unknown roles alphabetically after it.
func sortedRoles(insights map[models.Role][]string) []models.Role {
	var roles []models.Role
	seen := map[models.Role]bool{}

	for _, role := range models.AllRoles() {
		if _, ok := insights[role]; ok {
			roles = append(roles, role)
			seen[role] = true
		}
	}

	var extras []models.Role
	for role := range insights {
		if !seen[role] {
			extras = append(extras, role)
		}
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })

	return append(roles, extras...)
}
