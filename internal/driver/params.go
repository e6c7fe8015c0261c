package driver

import (
	"fmt"
	"strings"
)

// naiveSubstitute replaces "<prefix>k" tokens in sql with the inlined
// literal for params[k], for parameter interface parity across drivers.
// The translator itself never emits placeholders; this exists only so a
// caller that does pass params (directly against a driver, bypassing the
// translator) gets the same substitution semantics spec §4.2/§9
// acknowledges as insecure naive string replacement, not real binding.
func naiveSubstitute(sql string, params map[string]any, prefix string) string {
	if len(params) == 0 {
		return sql
	}
	out := sql
	for k, v := range params {
		out = strings.ReplaceAll(out, prefix+k, formatParamValue(v))
	}
	return out
}

// snowflakeSubstitute uses the ":k" token convention.
func snowflakeSubstitute(sql string, params map[string]any) string {
	return naiveSubstitute(sql, params, ":")
}

// clickhouseSubstitute uses the "{k}" token convention.
func clickhouseSubstitute(sql string, params map[string]any) string {
	if len(params) == 0 {
		return sql
	}
	out := sql
	for k, v := range params {
		out = strings.ReplaceAll(out, "{"+k+"}", formatParamValue(v))
	}
	return out
}

func formatParamValue(v any) string {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return fmt.Sprintf("%v", val)
	}
}
