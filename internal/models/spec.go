package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EvaluationSpec represents a complete evaluation run specification: the
// project, the vendors under evaluation, and the engine settings.
type EvaluationSpec struct {
	SpecIdentity `yaml:",inline"`
	Version      string `yaml:"version"`

	Requirements      string   `yaml:"requirements"`
	Vendors           []Vendor `yaml:"vendors"`
	ComplianceProfile string   `yaml:"compliance_profile,omitempty"`

	Config     EngineConfig         `yaml:"config"`
	Search     SearchConfig         `yaml:"search,omitempty"`
	Connectors []ConnectorConfig    `yaml:"connectors,omitempty"`
	Standards  []ComplianceStandard `yaml:"standards,omitempty"`
}

type SpecIdentity struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Vendor is one proposal under evaluation.
type Vendor struct {
	Name              string `yaml:"name" json:"name"`
	TechnicalApproach string `yaml:"technical_approach" json:"technical_approach"`
}

// EngineConfig controls execution behavior.
type EngineConfig struct {
	EngineType  string  `yaml:"engine" json:"engine_type"`
	ModelID     string  `yaml:"model" json:"model_id"`
	BaseURL     string  `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
	TimeoutSec  int     `yaml:"timeout_seconds" json:"timeout_sec"`
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// SearchConfig points at the knowledge backends. Everything is optional:
// with no endpoint the retriever reports "not configured" and evaluations
// run without knowledge context.
type SearchConfig struct {
	Endpoint       string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Index          string `yaml:"index,omitempty" json:"index,omitempty"`
	SecondaryIndex string `yaml:"secondary_index,omitempty" json:"secondary_index,omitempty"`
	APIKeyEnv      string `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty"`
	EmbeddingURL   string `yaml:"embedding_url,omitempty" json:"embedding_url,omitempty"`
	EmbeddingModel string `yaml:"embedding_model,omitempty" json:"embedding_model,omitempty"`
	LocalPath      string `yaml:"local_path,omitempty" json:"local_path,omitempty"`
}

// LoadEvaluationSpec loads a spec from a YAML file.
func LoadEvaluationSpec(path string) (*EvaluationSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec EvaluationSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &spec, nil
}

// Validate checks that the spec is minimally usable.
func (s *EvaluationSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("spec must have a name")
	}
	if len(s.Vendors) == 0 {
		return fmt.Errorf("spec must list at least one vendor")
	}
	for i, v := range s.Vendors {
		if v.Name == "" {
			return fmt.Errorf("vendor %d must have a name", i+1)
		}
	}
	if s.Config.TimeoutSec < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", s.Config.TimeoutSec)
	}
	return nil
}
