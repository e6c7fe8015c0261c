package driver

import (
	"strings"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/model"
)

// New selects a driver variant by connection.Type, per spec §4.4 step 2,
// rejecting connections missing a required config key first per spec.md:44's
// invariant (type and the fields required by that type must both be present
// before a driver can be built).
func New(conn *model.Connection) (Driver, error) {
	if missing := missingConfigKeys(conn); len(missing) > 0 {
		return nil, apperrors.ConfigError(nil, "connection %q missing required config keys: %s", conn.ID, strings.Join(missing, ", "))
	}

	switch conn.Type {
	case model.ConnectionPostgres:
		return newPostgresDriver(conn), nil
	case model.ConnectionClickHouse:
		return newClickHouseDriver(conn), nil
	case model.ConnectionBigQuery:
		return newBigQueryDriver(conn), nil
	case model.ConnectionSnowflake:
		return newSnowflakeDriver(conn), nil
	default:
		return nil, apperrors.Unsupported("unknown connection type %q", conn.Type)
	}
}

func missingConfigKeys(conn *model.Connection) []string {
	var missing []string
	for _, key := range model.RequiredConfigKeys(conn.Type) {
		if conn.ConfigString(key) == "" && conn.ConfigInt(key) == 0 {
			missing = append(missing, key)
		}
	}
	return missing
}
