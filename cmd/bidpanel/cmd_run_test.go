package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidpanel/bidpanel/internal/models"
	"github.com/bidpanel/bidpanel/internal/reporting"
)

const runTestSpec = `name: test-project
description: Test evaluation.
version: "1.0"
requirements: |
  - REST integration with the ERP
  - 500 concurrent users
config:
  engine: mock
  model: test-model
  timeout_seconds: 5
vendors:
  - name: acme-corp
    technical_approach: Microservices on managed Kubernetes.
`

func writeRunSpec(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "eval.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunCommand_MockEngine(t *testing.T) {
	specPath := writeRunSpec(t, runTestSpec)
	outPath := filepath.Join(filepath.Dir(specPath), "results.json")

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{specPath, "--output", outPath})
	require.NoError(t, cmd.Execute())

	results, err := reporting.LoadResults(outPath)
	require.NoError(t, err)

	assert.Equal(t, "test-project", results.Project)
	require.Len(t, results.Vendors, 1)
	assert.Equal(t, "acme-corp", results.Vendors[0].Evaluation.VendorName)

	// The mock engine's default reply is not a valid assessment, so every
	// specialist falls back and the consensus stays under review.
	assert.Equal(t, models.StatusUnderReview, results.Vendors[0].Evaluation.Status)
	assert.Len(t, results.Vendors[0].Diagnostics, 6)

	require.NotNil(t, results.Metrics)
	assert.Equal(t, 6, results.Metrics.Calls)
}

func TestRunCommand_WritesReports(t *testing.T) {
	specPath := writeRunSpec(t, runTestSpec)
	dir := filepath.Dir(specPath)
	reportPath := filepath.Join(dir, "reports")

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{specPath, "--report-dir", reportPath})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(reportPath, "acme-corp.md"))
	assert.FileExists(t, filepath.Join(reportPath, "acme-corp.html"))
}

func TestRunCommand_VendorFilter(t *testing.T) {
	spec := runTestSpec + `  - name: globex
    technical_approach: Monolith rehost.
`
	specPath := writeRunSpec(t, spec)
	outPath := filepath.Join(filepath.Dir(specPath), "results.json")

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{specPath, "--output", outPath, "--vendor", "globex"})
	require.NoError(t, cmd.Execute())

	results, err := reporting.LoadResults(outPath)
	require.NoError(t, err)
	require.Len(t, results.Vendors, 1)
	assert.Equal(t, "globex", results.Vendors[0].Evaluation.VendorName)
}

func TestRunCommand_LogFile(t *testing.T) {
	specPath := writeRunSpec(t, runTestSpec)
	logPath := filepath.Join(filepath.Dir(specPath), "run.log")

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{specPath, "--log-file", logPath})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)

	// the mock engine's default reply fails validation, so every specialist
	// logs a warning into the file
	assert.Contains(t, string(data), "specialist execution failed")
	assert.Contains(t, string(data), `"level":"WARN"`)
}

func TestRunCommand_UnknownVendorFilter(t *testing.T) {
	specPath := writeRunSpec(t, runTestSpec)

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{specPath, "--vendor", "nonexistent"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vendors match")
}

func TestRunCommand_UnknownEngine(t *testing.T) {
	spec := `name: test-project
vendors:
  - name: acme-corp
    technical_approach: Something.
config:
  engine: quantum
  model: test-model
`
	specPath := writeRunSpec(t, spec)

	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{specPath})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown engine type")
}

func TestRunCommand_MissingSpec(t *testing.T) {
	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestRunCommand_StandardsBundle(t *testing.T) {
	specPath := writeRunSpec(t, runTestSpec)
	dir := filepath.Dir(specPath)

	bundle := `standards:
  - name: data-residency
    description: Data must stay in region.
`
	bundlePath := filepath.Join(dir, "standards.yaml")
	require.NoError(t, os.WriteFile(bundlePath, []byte(bundle), 0o644))

	outPath := filepath.Join(dir, "results.json")
	cmd := newRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{specPath, "--output", outPath, "--standards", bundlePath})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, outPath)
}
