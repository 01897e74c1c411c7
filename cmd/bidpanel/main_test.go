package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskFlaggedError(t *testing.T) {
	err := &RiskFlaggedError{
		Message: "evaluation completed with 2 of 3 vendor(s) risk-flagged",
	}

	assert.Equal(t, "evaluation completed with 2 of 3 vendor(s) risk-flagged", err.Error())
}

func TestErrorTypeDetection(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType string
	}{
		{
			name:     "RiskFlaggedError",
			err:      &RiskFlaggedError{Message: "risk flagged"},
			wantType: "RiskFlaggedError",
		},
		{
			name:     "regular error",
			err:      errors.New("config error"),
			wantType: "other",
		},
		{
			name:     "wrapped RiskFlaggedError",
			err:      errors.Join(&RiskFlaggedError{Message: "risk flagged"}, errors.New("additional context")),
			wantType: "RiskFlaggedError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var riskErr *RiskFlaggedError
			isRisk := errors.As(tt.err, &riskErr)

			if tt.wantType == "RiskFlaggedError" {
				assert.True(t, isRisk, "expected error to be detected as RiskFlaggedError")
			} else {
				assert.False(t, isRisk, "expected error NOT to be detected as RiskFlaggedError")
			}
		})
	}
}
