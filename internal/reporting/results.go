package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bidpanel/bidpanel/internal/metrics"
	"github.com/bidpanel/bidpanel/internal/models"
)

// RunResults is the machine-readable output of one evaluation run across
// all vendors, consumed by dashboards and CI.
type RunResults struct {
	Project     string             `json:"project"`
	GeneratedAt time.Time          `json:"generated_at"`
	Vendors     []VendorResult     `json:"vendors"`
	Metrics     *metrics.Summary   `json:"metrics,omitempty"`
	Connectors  []ConnectorFailure `json:"connector_failures,omitempty"`
}

// VendorResult pairs one vendor's evaluation with its diagnostics.
type VendorResult struct {
	Evaluation  models.VendorEvaluation `json:"evaluation"`
	Diagnostics []models.Diagnostic     `json:"diagnostics"`
}

// ConnectorFailure is one external-source failure observed during the run.
type ConnectorFailure struct {
	Vendor string                `json:"vendor"`
	Error  models.ConnectorError `json:"error"`
}

// WriteResults writes the run results as indented JSON.
func WriteResults(path string, results *RunResults) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write results to %s: %w", path, err)
	}

	return nil
}

// LoadResults reads results written by [WriteResults].
func LoadResults(path string) (*RunResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results from %s: %w", path, err)
	}

	var results RunResults
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	return &results, nil
}
