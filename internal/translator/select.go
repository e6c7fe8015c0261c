package translator

import (
	"strings"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// timeBucketPlan, when non-nil, records that the time-range column is
// being projected as a truncated bucket instead of raw, so buildGroupBy can
// substitute the same alias.
type timeBucketPlan struct {
	alias string
}

func planTimeBucket(query *model.QueryModel, vt *dialect.Vtable) (*timeBucketPlan, string, error) {
	if query.VisualizationType() != "line" || query.Granularity == "" || query.TimeRange == nil {
		return nil, "", nil
	}
	col := query.TimeRange.Column
	if col == "" || !contains(query.GroupBy, col) {
		return nil, "", nil
	}
	expr, ok := vt.TimeTrunc(col, query.Granularity)
	if !ok {
		return nil, "", apperrors.InvalidQuery("unsupported granularity %q for dialect %s", query.Granularity, vt.Name)
	}
	alias := "trunc_" + strings.ReplaceAll(col, ".", "_") + "_" + query.Granularity
	return &timeBucketPlan{alias: alias}, expr, nil
}

// buildSelect implements the projection rules of spec §4.1.
func buildSelect(query *model.QueryModel, vt *dialect.Vtable) (string, error) {
	plan, truncExpr, err := planTimeBucket(query, vt)
	if err != nil {
		return "", err
	}

	var items []string

	switch {
	case plan != nil:
		items = append(items, truncExpr+" AS "+plan.alias)
		for _, dim := range query.GroupBy {
			if dim != query.TimeRange.Column {
				items = append(items, dim)
			}
		}
		aggItems, err := renderAggs(query.Agg, query.SelectedFields)
		if err != nil {
			return "", err
		}
		items = append(items, aggItems...)

	case query.VisualizationType() == "table" && len(query.SelectedFields) > 0:
		items = append(items, query.GroupBy...)

		fn := model.AggCount
		if len(query.Agg) > 0 && query.Agg[0].Function != "" {
			fn = query.Agg[0].Function
		}
		alias := "count"
		if len(query.Agg) > 0 && query.Agg[0].Alias != "" {
			alias = query.Agg[0].Alias
		}

		if fn == model.AggCount {
			items = append(items, "COUNT(*) AS "+alias)
		} else {
			var added bool
			for _, field := range query.SelectedFields {
				if field == "" || contains(query.GroupBy, field) {
					continue
				}
				items = append(items, strings.ToUpper(string(fn))+"("+field+") AS "+basename(field)+"_"+strings.ToLower(string(fn)))
				added = true
			}
			if !added {
				return "", apperrors.InvalidQuery("fields required for %s aggregation", fn)
			}
		}

	default:
		items = append(items, query.GroupBy...)
		aggItems, err := renderAggs(query.Agg, query.SelectedFields)
		if err != nil {
			return "", err
		}
		items = append(items, aggItems...)
	}

	if len(items) == 0 {
		if len(query.SelectedFields) > 0 {
			items = query.SelectedFields
		} else {
			items = []string{"*"}
		}
	}

	return "SELECT " + strings.Join(items, ", "), nil
}

// renderAggs renders each Agg entry per the default alias rule:
// "<function_lower>_<column_basename>", with COUNT(*) defaulting to "count".
// A non-count aggregation with no column falls back to fields[0] if
// present, else fails.
func renderAggs(aggs []model.Agg, fields []string) ([]string, error) {
	items := make([]string, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Function == model.AggCount && agg.Column == "" {
			alias := agg.Alias
			if alias == "" {
				alias = "count"
			}
			items = append(items, "COUNT(*) AS "+alias)
			continue
		}

		col := agg.Column
		if col == "" {
			if len(fields) == 0 {
				return nil, apperrors.InvalidQuery("column required for %s aggregation", agg.Function)
			}
			col = fields[0]
		}

		alias := agg.Alias
		if alias == "" {
			alias = strings.ToLower(string(agg.Function)) + "_" + basename(col)
		}
		items = append(items, strings.ToUpper(string(agg.Function))+"("+col+") AS "+alias)
	}
	return items, nil
}

// buildGroupBy emits the group columns, substituting the truncated time
// alias when bucketing is active. Absent both groupBy and agg, omit.
func buildGroupBy(query *model.QueryModel, vt *dialect.Vtable) string {
	if len(query.GroupBy) == 0 {
		return ""
	}
	plan, _, err := planTimeBucket(query, vt)
	if err != nil {
		plan = nil
	}

	cols := make([]string, 0, len(query.GroupBy))
	for _, dim := range query.GroupBy {
		if plan != nil && dim == query.TimeRange.Column {
			cols = append(cols, plan.alias)
			continue
		}
		cols = append(cols, dim)
	}
	return "GROUP BY " + strings.Join(cols, ", ")
}

func contains(items []string, target string) bool {
	for _, i := range items {
		if i == target {
			return true
		}
	}
	return false
}
