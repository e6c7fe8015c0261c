package translator

import (
	"log/slog"
	"strings"

	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// renderFilters joins a flat list of top-level filter nodes (conditions or
// groups) with AND, per spec §4.1's WHERE clause rule.
func renderFilters(nodes []model.FilterNode, vt *dialect.Vtable) string {
	var parts []string
	for _, n := range nodes {
		if s := renderFilterNode(n, vt); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " AND ")
}

// renderFilterNode renders one node of the FilterNode tagged union,
// recursing into groups. Returns "" for an empty group.
func renderFilterNode(n model.FilterNode, vt *dialect.Vtable) string {
	if n.IsGroup() {
		var parts []string
		for _, c := range n.Conditions {
			if s := renderFilterNode(c, vt); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		logic := strings.ToUpper(string(n.Logic))
		if logic == "" {
			logic = "AND"
		}
		return "(" + strings.Join(parts, " "+logic+" ") + ")"
	}
	return renderCondition(n, vt)
}

// renderCondition renders a single Condition node. An unrecognized operator
// is logged and dropped (boundary behavior in spec §8), not failed.
func renderCondition(n model.FilterNode, vt *dialect.Vtable) string {
	col, op, val := n.Column, n.Operator, n.Value

	switch op {
	case "is_null":
		return col + " IS NULL"
	case "is_not_null":
		return col + " IS NOT NULL"
	case "=", "!=", "<", "<=", ">", ">=":
		return col + " " + op + " " + formatLiteral(val)
	case "in":
		return col + " IN (" + formatList(val) + ")"
	case "not_in":
		return col + " NOT IN (" + formatList(val) + ")"
	case "contains":
		return col + " " + vt.LikeOperator + " " + quoteString("%" + stringify(val) + "%")
	case "starts_with":
		return col + " " + vt.LikeOperator + " " + quoteString(stringify(val) + "%")
	case "ends_with":
		return col + " " + vt.LikeOperator + " " + quoteString("%" + stringify(val))
	default:
		slog.Warn("translator: unsupported filter operator", "operator", op)
		return ""
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return formatLiteral(v)
}

// renderTimeRange renders the time-range clause of spec §4.1. Returns "" if
// no column is set or the range token is unrecognized (logged, not failed).
func renderTimeRange(tr *model.TimeRange, vt *dialect.Vtable) string {
	if tr == nil || tr.Column == "" {
		return ""
	}
	col := tr.Column

	if tr.Range == "custom" && tr.CustomRange != nil {
		from, to := tr.CustomRange.From, tr.CustomRange.To
		switch {
		case from != "" && to != "":
			return col + " BETWEEN " + quoteString(from) + " AND " + quoteString(to)
		case from != "":
			return col + " >= " + quoteString(from)
		case to != "":
			return col + " <= " + quoteString(to)
		}
		return ""
	}

	if strings.HasPrefix(tr.Range, "last_") {
		parts := strings.SplitN(tr.Range, "_", 3)
		if len(parts) == 3 {
			return vt.LastInterval(col, parts[1], parts[2])
		}
	} else if strings.HasPrefix(tr.Range, "this_") {
		unit := strings.TrimPrefix(tr.Range, "this_")
		if expr, ok := vt.ThisUnit(col, unit); ok {
			return expr
		}
	}

	slog.Warn("translator: unsupported time range", "range", tr.Range)
	return ""
}
