package driver

import "strings"

// normalizePostgresType maps an information_schema.columns data_type into
// the common vocabulary of spec §3, per postgres_connector.py's
// substring-matching rule.
func normalizePostgresType(dataType string) string {
	t := strings.ToLower(dataType)
	switch {
	case strings.Contains(t, "int"):
		return "integer"
	case t == "real", t == "double precision", t == "numeric", t == "decimal":
		return "number"
	case strings.Contains(t, "char"), strings.Contains(t, "text"):
		return "string"
	case strings.Contains(t, "bool"):
		return "boolean"
	case strings.Contains(t, "timestamp"):
		return "timestamp"
	case strings.Contains(t, "date"):
		return "date"
	case strings.Contains(t, "json"):
		return "json"
	case strings.Contains(t, "array"), strings.HasSuffix(t, "[]"):
		return "array"
	default:
		return "string"
	}
}

// normalizeClickHouseType maps a ClickHouse column type name into the
// common vocabulary. ClickHouse wraps nullability and arrays in the type
// string itself (e.g. "Nullable(String)", "Array(UInt32)"). Nullable(...)
// and LowCardinality(...) wrappers are unwrapped before matching; any
// Array(...) type maps to "array".
func normalizeClickHouseType(dataType string) string {
	t := dataType
	if strings.HasPrefix(t, "Nullable(") && strings.HasSuffix(t, ")") {
		t = t[len("Nullable(") : len(t)-1]
	}
	if strings.HasPrefix(t, "LowCardinality(") && strings.HasSuffix(t, ")") {
		t = t[len("LowCardinality(") : len(t)-1]
	}
	switch {
	case strings.HasPrefix(t, "Array("):
		return "array"
	case strings.HasPrefix(t, "Int"), strings.HasPrefix(t, "UInt"):
		return "integer"
	case strings.HasPrefix(t, "Float"), strings.HasPrefix(t, "Decimal"):
		return "number"
	case strings.HasPrefix(t, "DateTime"):
		return "timestamp"
	case t == "Date", strings.HasPrefix(t, "Date32"):
		return "date"
	case t == "Bool":
		return "boolean"
	case strings.HasPrefix(t, "String"), strings.HasPrefix(t, "FixedString"), strings.HasPrefix(t, "Enum"):
		return "string"
	case strings.HasPrefix(t, "Map"), strings.HasPrefix(t, "Tuple"), strings.HasPrefix(t, "JSON"):
		return "json"
	default:
		return "string"
	}
}

// normalizeBigQueryType maps a BigQuery standard SQL type name.
func normalizeBigQueryType(dataType string) string {
	switch strings.ToUpper(dataType) {
	case "INTEGER", "INT64":
		return "integer"
	case "FLOAT", "FLOAT64", "NUMERIC", "BIGNUMERIC":
		return "number"
	case "BOOLEAN", "BOOL":
		return "boolean"
	case "DATE":
		return "date"
	case "TIMESTAMP", "DATETIME":
		return "timestamp"
	case "RECORD", "STRUCT", "JSON":
		return "json"
	case "REPEATED":
		return "array"
	default:
		return "string"
	}
}

// normalizeSnowflakeType maps a Snowflake column type name.
func normalizeSnowflakeType(dataType string) string {
	t := strings.ToUpper(dataType)
	switch {
	case strings.HasPrefix(t, "NUMBER"), strings.HasPrefix(t, "INT"):
		return "integer"
	case strings.HasPrefix(t, "FLOAT"), strings.HasPrefix(t, "DOUBLE"), strings.HasPrefix(t, "DECIMAL"):
		return "number"
	case t == "BOOLEAN":
		return "boolean"
	case t == "DATE":
		return "date"
	case strings.HasPrefix(t, "TIMESTAMP"):
		return "timestamp"
	case t == "VARIANT", t == "OBJECT":
		return "json"
	case t == "ARRAY":
		return "array"
	default:
		return "string"
	}
}
