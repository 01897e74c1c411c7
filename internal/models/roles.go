package models

// Role identifies one fixed evaluation perspective. Every vendor proposal is
// assessed by all roles independently; the aggregator combines their results.
type Role string

const (
	RoleFunctional   Role = "functional"
	RoleArchitecture Role = "architecture"
	RoleDelivery     Role = "delivery"
	RoleCompliance   Role = "compliance"
	RoleIntegration  Role = "integration"
	RoleOperations   Role = "operations"
)

// AllRoles returns the configured specialist roles in presentation order.
// The slice is freshly allocated on each call so callers may reorder it.
func AllRoles() []Role {
	return []Role{
		RoleFunctional,
		RoleArchitecture,
		RoleDelivery,
		RoleCompliance,
		RoleIntegration,
		RoleOperations,
	}
}

// DisplayName returns the human-readable label for a role.
func (r Role) DisplayName() string {
	switch r {
	case RoleFunctional:
		return "Functional Fit Analyst"
	case RoleArchitecture:
		return "Solution Architect"
	case RoleDelivery:
		return "Delivery Manager"
	case RoleCompliance:
		return "Compliance Officer"
	case RoleIntegration:
		return "Integration Engineer"
	case RoleOperations:
		return "Operations & Support Analyst"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the configured roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFunctional, RoleArchitecture, RoleDelivery,
		RoleCompliance, RoleIntegration, RoleOperations:
		return true
	}
	return false
}

// FallbackInsights returns the fixed, role-specific insight strings used when
// a specialist fails entirely. Each role has exactly four so a failed
// assessment still tells the reader what needs manual review.
func (r Role) FallbackInsights() []string {
	switch r {
	case RoleFunctional:
		return []string{
			"Functional coverage could not be assessed automatically; review the proposal against each requirement manually",
			"Verify that all mandatory capabilities are explicitly addressed in the vendor response",
			"Check for requirements the vendor marked as roadmap items rather than delivered features",
			"Confirm the proposed configuration effort for any partially-covered requirements",
		}
	case RoleArchitecture:
		return []string{
			"Technical architecture could not be assessed automatically; review the solution design manually",
			"Verify the proposed technology stack against your organization's approved platforms",
			"Check scalability claims for supporting evidence such as reference deployments",
			"Confirm data residency and hosting topology match your constraints",
		}
	case RoleDelivery:
		return []string{
			"Delivery risk could not be assessed automatically; review the implementation plan manually",
			"Verify the proposed timeline against the vendor's stated team capacity",
			"Check milestone definitions for measurable acceptance criteria",
			"Confirm dependencies on customer-side resources are realistic",
		}
	case RoleCompliance:
		return []string{
			"Compliance posture could not be assessed automatically; review certifications manually",
			"Verify that claimed certifications are current and cover the services in scope",
			"Check the proposal against each organization compliance standard individually",
			"Confirm contractual commitments to audit rights and breach notification",
		}
	case RoleIntegration:
		return []string{
			"Integration capability could not be assessed automatically; review the API surface manually",
			"Verify the availability of documented APIs for each required integration point",
			"Check authentication and data-format compatibility with existing systems",
			"Confirm the vendor's support model for custom integration work",
		}
	case RoleOperations:
		return []string{
			"Operational support could not be assessed automatically; review SLAs manually",
			"Verify support tiers, response times, and escalation paths",
			"Check the vendor's maintenance windows against your availability requirements",
			"Confirm documentation quality and training provisions for operational handover",
		}
	default:
		return []string{
			"Assessment unavailable for this perspective; review the proposal manually",
			"Verify the vendor's claims in this area against independent evidence",
			"Check the proposal for gaps relevant to this perspective",
			"Confirm findings with the responsible subject-matter expert",
		}
	}
}
