package translator

import (
	"fmt"
	"strconv"
	"strings"
)

// quoteString renders a string literal, doubling any embedded single quote
// per the escaping decision in DESIGN.md (spec §9 requires at minimum
// escaping single quotes; the source translator this is based on does not).
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// formatLiteral renders a scalar value for inline interpolation into SQL.
// Strings are single-quoted and escaped; everything else uses its natural
// textual form.
func formatLiteral(v any) string {
	switch val := v.(type) {
	case string:
		return quoteString(val)
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatList renders a slice value as "v1, v2, ..." for the parentheses of
// IN/NOT IN; the caller adds the parentheses.
func formatList(v any) string {
	items, ok := v.([]any)
	if !ok {
		// Already a scalar/string the caller passed through unparsed.
		return fmt.Sprintf("%v", v)
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatLiteral(item)
	}
	return strings.Join(parts, ", ")
}

// basename returns the segment of a dotted column reference after the
// last dot, e.g. "t.price" -> "price".
func basename(col string) string {
	idx := strings.LastIndex(col, ".")
	if idx < 0 {
		return col
	}
	return col[idx+1:]
}
