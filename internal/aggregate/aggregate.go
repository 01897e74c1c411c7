// Package aggregate combines the per-role specialist results for one vendor
// into a single consensus evaluation. Failed specialists keep their
// qualitative insights but never contribute to numeric averages.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/bidpanel/bidpanel/internal/models"
)

// Aggregate builds the consensus evaluation from all specialist results.
// The results slice holds one entry per configured role, successful or not.
func Aggregate(vendor string, results []models.SpecialistResult) models.VendorEvaluation {
	subScores := make(map[models.ScoreKey]float64)
	var breakdown []models.ScoreBreakdown

	for _, key := range models.AllScoreKeys() {
		var sum float64
		var contributors int

		for _, r := range results {
			// only specialists that succeeded AND explicitly reported the
			// score pull the average; everyone else is left out entirely.
			if !r.Succeeded || !r.HasScore(key) {
				continue
			}
			sum += r.Scores[key]
			contributors++
		}

		if contributors == 0 {
			continue
		}

		avg := sum / float64(contributors)
		subScores[key] = avg
		breakdown = append(breakdown, models.ScoreBreakdown{
			Key:          key,
			Average:      avg,
			Contributors: contributors,
		})
	}

	insights := make(map[models.Role][]string, len(results))
	var totalCost float64

	for _, r := range results {
		roleInsights := r.Insights
		if len(roleInsights) == 0 {
			roleInsights = r.Role.FallbackInsights()
		}
		insights[r.Role] = roleInsights
		totalCost += r.CostUSD
	}

	return models.VendorEvaluation{
		VendorName:   vendor,
		OverallScore: subScores[models.ScoreOverall],
		SubScores:    subScores,
		Cost:         fmt.Sprintf("$%.4f", totalCost),
		Status:       consensusStatus(results),
		Rationale:    buildRationale(results),
		RoleInsights: insights,
		Breakdown:    breakdown,
		Timestamp:    time.Now().UTC(),
	}
}

// consensusStatus votes across all specialists. The thresholds scale with
// the role count: more than a third flagging risk wins, then more than half
// recommending. With six roles that is >2 and >3 respectively.
func consensusStatus(results []models.SpecialistResult) models.VendorStatus {
	var riskFlagged, recommended int

	for _, r := range results {
		switch r.Status {
		case models.StatusRiskFlagged:
			riskFlagged++
		case models.StatusRecommended:
			if r.Succeeded {
				recommended++
			}
		}
	}

	n := len(results)

	switch {
	case riskFlagged*3 > n:
		return models.StatusRiskFlagged
	case recommended*2 > n:
		return models.StatusRecommended
	default:
		return models.StatusUnderReview
	}
}

// buildRationale concatenates each successful specialist's role-labeled
// rationale, with a footnote when any evaluation was incomplete.
func buildRationale(results []models.SpecialistResult) string {
	var parts []string
	var failed int

	for _, r := range results {
		if !r.Succeeded {
			failed++
			continue
		}
		if r.Rationale != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", r.Role.DisplayName(), r.Rationale))
		}
	}

	rationale := strings.Join(parts, "\n\n")

	if failed > 0 {
		footnote := fmt.Sprintf("Note: %d of %d specialist evaluations were incomplete; refer to the role-specific insights for those perspectives.", failed, len(results))
		if rationale == "" {
			return footnote
		}
		rationale += "\n\n" + footnote
	}

	return rationale
}

// BuildDiagnostics derives the observability entries mirroring the
// specialist set. Timeouts are distinguished from other failures.
func BuildDiagnostics(results []models.SpecialistResult) []models.Diagnostic {
	diags := make([]models.Diagnostic, 0, len(results))

	for _, r := range results {
		status := models.ExecSuccess
		var errMsg string

		if !r.Succeeded {
			status = models.ExecFailed
			if r.FailureCategory == models.FailureTimeout {
				status = models.ExecTimeout
			}
			errMsg = string(r.FailureCategory)
		}

		diags = append(diags, models.Diagnostic{
			Role:       r.Role,
			Status:     status,
			DurationMs: r.DurationMs,
			TokensUsed: r.TokensUsed,
			CostUSD:    r.CostUSD,
			Error:      errMsg,
		})
	}

	return diags
}
