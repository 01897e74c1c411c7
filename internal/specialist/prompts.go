package specialist

import (
	"fmt"
	"strings"

	"github.com/bidpanel/bidpanel/internal/models"
)

// systemPrompt is the fixed instruction shared by every specialist. The
// role-specific focus is appended per call.
const systemPrompt = `You are %s, one member of a vendor evaluation panel. You assess exactly one vendor proposal from your own perspective, independently of the other panel members.

Focus: %s

Score on a 0-100 scale where 100 is a perfect fit. Be specific: cite the proposal, not generalities. Respond with a single JSON object of the form:
{
  "insights": ["..."],
  "scores": {"overall": 0, "...": 0},
  "rationale": "...",
  "status": "recommended" | "under-review" | "risk-flagged"
}
The "scores" object must always include "overall". Add only the named sub-scores you can justify: functional_fit, technical_fit, delivery_risk, compliance, integration, support, scalability, documentation. For delivery_risk, higher means riskier. "status" is optional.`

func roleFocus(role models.Role) string {
	switch role {
	case models.RoleFunctional:
		return "how completely the proposal covers the stated requirements, feature by feature, including partially-covered and roadmap-only items."
	case models.RoleArchitecture:
		return "the soundness of the technical approach: technology stack, scalability, data handling, and hosting topology."
	case models.RoleDelivery:
		return "implementation risk: timeline realism, team capacity, milestone quality, and customer-side dependencies. Report a delivery_risk sub-score."
	case models.RoleCompliance:
		return "regulatory and contractual posture: certifications, data protection, audit rights, and each listed compliance standard. Report a compliance sub-score."
	case models.RoleIntegration:
		return "how the proposed solution connects to existing systems: API surface, authentication, data formats, and custom integration effort."
	case models.RoleOperations:
		return "post-go-live viability: support tiers, SLAs, maintenance, documentation quality, and operational handover."
	default:
		return "the overall fitness of the proposal from your perspective."
	}
}

func buildSystemPrompt(role models.Role) string {
	return fmt.Sprintf(systemPrompt, role.DisplayName(), roleFocus(role))
}

// buildUserMessage assembles the evaluation request. Optional sections
// (standards, knowledge, connector payloads) are appended only when present.
func buildUserMessage(evalCtx models.EvaluationContext, knowledge models.KnowledgeContext, connectorContext string, standards []models.ComplianceStandard) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Evaluate the proposal from vendor %q for project %q.\n\n", evalCtx.VendorName, evalCtx.ProjectID)

	sb.WriteString("## Requirements\n")
	if evalCtx.RequirementsSummary != "" {
		sb.WriteString(evalCtx.RequirementsSummary)
	} else {
		sb.WriteString("(no requirements summary provided)")
	}
	sb.WriteString("\n\n")

	sb.WriteString("## Vendor proposal\n")
	if evalCtx.TechnicalApproach != "" {
		sb.WriteString(evalCtx.TechnicalApproach)
	} else {
		sb.WriteString("(no technical approach provided)")
	}
	sb.WriteString("\n")

	if len(standards) > 0 {
		sb.WriteString("\n## Organization compliance standards\n")
		sb.WriteString("Each standard below must be explicitly addressed in your assessment.\n")
		for _, std := range standards {
			fmt.Fprintf(&sb, "- %s: %s\n", std.Name, std.Description)
		}
	}

	if !knowledge.Empty() {
		sb.WriteString("\n## Knowledge base context\n")
		fmt.Fprintf(&sb, "%s\n", knowledge.Summary)
		for _, f := range knowledge.Fragments {
			title := f.SectionTitle
			if title == "" {
				title = f.FileName
			}
			fmt.Fprintf(&sb, "\n### %s (%s)\n%s\n", title, f.FileName, f.Content)
		}
	}

	if connectorContext != "" {
		sb.WriteString("\n## External source context\n")
		sb.WriteString(connectorContext)
		sb.WriteString("\n")
	}

	return sb.String()
}
