package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `
name: crm-selection
description: CRM vendor selection for EMEA
version: "1"
requirements: |
  - CRM with API access
  - SSO support
vendors:
  - name: Acme
    technical_approach: SaaS platform with REST APIs
  - name: Globex
    technical_approach: On-prem suite
config:
  engine: openai
  model: gpt-4o-mini
  timeout_seconds: 30
connectors:
  - id: news
    name: Vendor news
    endpoint: https://news.example.com/query
    roles: [delivery, operations]
    active: true
standards:
  - name: ISO 27001
    description: Information security management
    mandatory: true
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEvaluationSpec(t *testing.T) {
	spec, err := LoadEvaluationSpec(writeSpec(t, sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, "crm-selection", spec.Name)
	require.Len(t, spec.Vendors, 2)
	assert.Equal(t, "Acme", spec.Vendors[0].Name)
	assert.Equal(t, "gpt-4o-mini", spec.Config.ModelID)
	assert.Equal(t, 30, spec.Config.TimeoutSec)

	require.Len(t, spec.Connectors, 1)
	assert.True(t, spec.Connectors[0].MappedToRole(RoleDelivery))
	assert.False(t, spec.Connectors[0].MappedToRole(RoleCompliance))

	require.Len(t, spec.Standards, 1)
	assert.True(t, spec.Standards[0].Mandatory)
}

func TestLoadEvaluationSpec_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"missing name", "vendors:\n  - name: Acme\n"},
		{"no vendors", "name: x\n"},
		{"unnamed vendor", "name: x\nvendors:\n  - technical_approach: y\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEvaluationSpec(writeSpec(t, tt.spec))
			assert.Error(t, err)
		})
	}
}
