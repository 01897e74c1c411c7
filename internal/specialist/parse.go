package specialist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bidpanel/bidpanel/internal/models"
)

// resultSchema constrains the structured response. Kept permissive on
// purpose: unknown score keys are dropped during decoding rather than
// rejected here.
const resultSchema = `{
	"type": "object",
	"required": ["insights", "scores", "rationale"],
	"properties": {
		"insights": {
			"type": "array",
			"items": {"type": "string"},
			"minItems": 1
		},
		"scores": {
			"type": "object",
			"required": ["overall"],
			"additionalProperties": {"type": "number"}
		},
		"rationale": {"type": "string"},
		"status": {
			"type": "string",
			"enum": ["recommended", "under-review", "risk-flagged"]
		}
	}
}`

func compileResultSchema() (*jsonschema.Schema, error) {
	var schemaValue any
	if err := json.Unmarshal([]byte(resultSchema), &schemaValue); err != nil {
		return nil, fmt.Errorf("failed to parse result schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.json", schemaValue); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("result.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile result schema: %w", err)
	}

	return schema, nil
}

type specialistResponse struct {
	Insights  []string           `json:"insights"`
	Scores    map[string]float64 `json:"scores"`
	Rationale string             `json:"rationale"`
	Status    string             `json:"status"`
}

// parseResponse extracts the structured assessment from raw model output.
// Models wrap JSON in code fences or emit slightly broken JSON often enough
// that the payload is repaired before validation.
func parseResponse(raw string, schema *jsonschema.Schema) (*specialistResponse, error) {
	cleaned := stripCodeFences(raw)

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return nil, fmt.Errorf("response is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &value); err != nil {
			return nil, fmt.Errorf("repaired response is still not valid JSON: %w", err)
		}
		cleaned = repaired
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("response failed schema validation: %w", err)
	}

	var resp specialistResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &resp, nil
}

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	return strings.TrimSpace(s)
}

// toScores converts raw score keys to the named dimensions, dropping keys
// that aren't recognized so a creative model can't invent new averages.
func toScores(raw map[string]float64) map[models.ScoreKey]float64 {
	scores := make(map[models.ScoreKey]float64, len(raw))
	for _, key := range models.AllScoreKeys() {
		if v, ok := raw[string(key)]; ok {
			scores[key] = v
		}
	}
	return scores
}

// deriveStatus decides the verdict when the model didn't supply one.
// Risk signals win over recommendation signals. delivery_risk and
// compliance participate only when the specialist declared them.
func deriveStatus(scores map[models.ScoreKey]float64) models.VendorStatus {
	overall := scores[models.ScoreOverall]
	deliveryRisk, hasDeliveryRisk := scores[models.ScoreDeliveryRisk]
	compliance, hasCompliance := scores[models.ScoreCompliance]

	switch {
	case overall < 45,
		hasDeliveryRisk && deliveryRisk > 75,
		hasCompliance && compliance < 35:
		return models.StatusRiskFlagged
	case overall >= 65 && (!hasDeliveryRisk || deliveryRisk <= 50):
		return models.StatusRecommended
	default:
		return models.StatusUnderReview
	}
}
