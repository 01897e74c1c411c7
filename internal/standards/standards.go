// Package standards loads the read-only configuration the evaluation core
// consumes from the persistence collaborator: organization compliance
// standards and active connector definitions.
package standards

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bidpanel/bidpanel/internal/models"
)

// Bundle is one loaded configuration set.
type Bundle struct {
	Standards  []models.ComplianceStandard `yaml:"standards"`
	Connectors []models.ConnectorConfig    `yaml:"connectors"`
}

// ActiveConnectors returns only the connectors marked active.
func (b *Bundle) ActiveConnectors() []models.ConnectorConfig {
	var active []models.ConnectorConfig
	for _, c := range b.Connectors {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}

// Source supplies a configuration bundle. Implementations must be read-only
// with respect to the backing store.
type Source interface {
	Load(ctx context.Context) (*Bundle, error)
}

// FileSource loads a bundle from a local YAML file.
type FileSource struct {
	Path string
}

func (s *FileSource) Load(ctx context.Context) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read standards file: %w", err)
	}

	return parseBundle(data)
}

func parseBundle(data []byte) (*Bundle, error) {
	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse standards bundle: %w", err)
	}

	for i, c := range bundle.Connectors {
		if c.ID == "" || c.Endpoint == "" {
			return nil, fmt.Errorf("connector %d must have id and endpoint", i+1)
		}
	}

	return &bundle, nil
}
