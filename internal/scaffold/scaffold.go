// Package scaffold provides shared template functions for generating
// evaluation spec files and standards bundles used by bidpanel init.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ValidateName rejects names with path-traversal characters or empty names.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	cleaned := filepath.Clean(name)
	if strings.Contains(name, "..") || strings.Contains(cleaned, "/") || strings.Contains(cleaned, "\\") || cleaned == "." {
		return fmt.Errorf("project name %q contains invalid path characters", name)
	}
	return nil
}

// TitleCase converts a kebab-case name to Title Case.
func TitleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
}

// ReadProjectDefaults reads engine and model from .bidpanel.yaml if it
// exists in the current directory or any parent. Falls back to the openai
// engine and gpt-4o.
func ReadProjectDefaults() (engine, model string) {
	engine = "openai"
	model = "gpt-4o"

	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 10; i++ {
		configPath := filepath.Join(dir, ".bidpanel.yaml")
		data, err := os.ReadFile(configPath)
		if err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if strings.HasPrefix(line, "engine:") {
					if v := strings.TrimSpace(strings.TrimPrefix(line, "engine:")); v != "" {
						engine = v
					}
				}
				if strings.HasPrefix(line, "model:") {
					if v := strings.TrimSpace(strings.TrimPrefix(line, "model:")); v != "" {
						model = v
					}
				}
			}
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return
}

// EvalYAML returns a default eval.yaml template for the given project name.
func EvalYAML(name, engine, model string) string {
	return fmt.Sprintf(`name: %s
description: Vendor proposal evaluation for %s.
version: "1.0"
requirements: |
  - Replace the legacy order management system
  - Integrate with the existing ERP over REST
  - Support 500 concurrent users
vendors:
  - name: example-vendor
    technical_approach: |
      Describe the vendor's proposed technical approach here.
config:
  engine: %s
  model: %s
  timeout_seconds: 30
`, name, TitleCase(name), engine, model)
}

// StandardsYAML returns a default standards bundle template.
func StandardsYAML() string {
	return `standards:
  - name: data-residency
    description: Vendor data must remain within approved regions.
  - name: access-control
    description: All vendor interfaces require role-based access control.
connectors:
  - id: example-registry
    endpoint: https://registry.example.com/api/lookup
    roles: [compliance, operations]
    active: false
`
}
