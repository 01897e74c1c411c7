package models

import "time"

// FailureCategory classifies why an external call failed. Categories are
// recorded as data and logged; they are never thrown past the fan-out
// boundary.
type FailureCategory string

const (
	FailureAuth      FailureCategory = "authentication"
	FailureTimeout   FailureCategory = "timeout"
	FailureRateLimit FailureCategory = "rate-limit"
	FailureParsing   FailureCategory = "parsing"
	FailureNetwork   FailureCategory = "network"
	FailureUnknown   FailureCategory = "unknown"
)

// ConnectorPayload is role-scoped text normalized from one external
// connector's raw response.
type ConnectorPayload struct {
	Connector string        `json:"connector"`
	Roles     []Role        `json:"roles"`
	Text      string        `json:"text"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// ConnectorError is a connector failure returned as data.
type ConnectorError struct {
	Connector string          `json:"connector"`
	Category  FailureCategory `json:"category"`
	Message   string          `json:"message"`
	At        time.Time       `json:"at"`
}

// ConnectorConfig describes one configured external data source. Supplied by
// the persistence collaborator; this core only reads it.
type ConnectorConfig struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Endpoint string            `json:"endpoint" yaml:"endpoint"`
	APIKey   string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Roles    []Role            `json:"roles" yaml:"roles"`
	Active   bool              `json:"active" yaml:"active"`
}

// MappedToRole reports whether the connector serves the given role.
func (c ConnectorConfig) MappedToRole(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ComplianceStandard is one organization-specific standard a proposal must
// explicitly address. Read-only configuration from the persistence layer.
type ComplianceStandard struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Mandatory   bool   `json:"mandatory" yaml:"mandatory"`
}
