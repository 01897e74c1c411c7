package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidpanel/bidpanel/internal/models"
)

func TestInitCommand_CreatesProject(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "erp-replacement")

	var buf bytes.Buffer
	cmd := newInitCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{target})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(target, "eval.yaml"))
	assert.FileExists(t, filepath.Join(target, "standards.yaml"))

	output := buf.String()
	assert.Contains(t, output, "Initialized evaluation project")
	assert.Contains(t, output, "eval.yaml")
	assert.Contains(t, output, "standards.yaml")
	assert.Contains(t, output, "Next steps")

	// The generated spec must load and validate.
	spec, err := models.LoadEvaluationSpec(filepath.Join(target, "eval.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "erp-replacement", spec.Name)
	require.Len(t, spec.Vendors, 1)
}

func TestInitCommand_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "my-project")

	cmd1 := newInitCommand()
	cmd1.SetOut(&bytes.Buffer{})
	cmd1.SetArgs([]string{target})
	require.NoError(t, cmd1.Execute())

	cmd2 := newInitCommand()
	cmd2.SetOut(&bytes.Buffer{})
	cmd2.SetErr(&bytes.Buffer{})
	cmd2.SetArgs([]string{target})
	err := cmd2.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitCommand_Interactive(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "wms")

	// Piped input drives the wizard's line-based fallback. The directory
	// name pre-fills the project name, so input starts at the description.
	input := "Warehouse management procurement\nbarcode scanning; 3PL integration\nacme-corp, globex\nmock\ntest-model\n"

	var buf bytes.Buffer
	cmd := newInitCommand()
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs([]string{target, "--interactive"})
	require.NoError(t, cmd.Execute())

	spec, err := models.LoadEvaluationSpec(filepath.Join(target, "eval.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "wms", spec.Name)
	assert.Equal(t, "mock", spec.Config.EngineType)
	assert.Equal(t, "test-model", spec.Config.ModelID)
	require.Len(t, spec.Vendors, 2)
	assert.Equal(t, "acme-corp", spec.Vendors[0].Name)
}
