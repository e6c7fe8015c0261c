// Package model holds the typed JSON IR shared by the translator, drivers,
// and services: connections, query models, metadata, and results.
package model

import "time"

// ConnectionType identifies which backend driver a Connection targets.
type ConnectionType string

const (
	ConnectionPostgres   ConnectionType = "postgres"
	ConnectionClickHouse ConnectionType = "clickhouse"
	ConnectionBigQuery   ConnectionType = "bigquery"
	ConnectionSnowflake  ConnectionType = "snowflake"
)

// Connection describes a registered backend target. Config is an open bag
// whose recognized keys depend on Type (see RequiredConfigKeys).
type Connection struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      ConnectionType `json:"type"`
	Config    map[string]any `json:"config"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Predefined connections are loaded once from connections.yaml at
	// startup and reject update/delete.
	Predefined bool `json:"-"`
}

// RequiredConfigKeys lists the config keys that must be present before a
// driver can be built for the given connection type, per spec §3.
func RequiredConfigKeys(t ConnectionType) []string {
	switch t {
	case ConnectionPostgres, ConnectionClickHouse:
		return []string{"host", "port", "database", "user", "password"}
	case ConnectionBigQuery:
		return []string{"project_id", "credentials_json"}
	case ConnectionSnowflake:
		return []string{"account", "user", "password", "warehouse", "database", "schema"}
	default:
		return nil
	}
}

// ConfigString returns the string value for key, or "" if absent or not a string.
func (c *Connection) ConfigString(key string) string {
	if c == nil || c.Config == nil {
		return ""
	}
	if v, ok := c.Config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ConfigInt returns the int value for key, or 0 if absent/unparseable.
// YAML/JSON unmarshaling surfaces numbers as int, int64, or float64
// depending on source, so all three are accepted.
func (c *Connection) ConfigInt(key string) int {
	if c == nil || c.Config == nil {
		return 0
	}
	switch v := c.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// ConfigBool returns the bool value for key, defaulting to false.
func (c *Connection) ConfigBool(key string) bool {
	if c == nil || c.Config == nil {
		return false
	}
	if v, ok := c.Config[key].(bool); ok {
		return v
	}
	return false
}
