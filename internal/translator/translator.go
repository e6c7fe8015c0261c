// Package translator converts a model.QueryModel into a dialect-specific
// SQL string. Translate and TranslateCount are pure, side-effect-free
// functions; all per-dialect variance flows through a dialect.Vtable so
// this package holds no "if dialect ==" branches of its own.
package translator

import (
	"strconv"
	"strings"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

// Translate converts query into a SQL string for the given dialect. It
// fails with an InvalidQuery error for violations of the data model's
// pagination invariants before any SQL is generated.
func Translate(query *model.QueryModel, d dialect.Name) (string, error) {
	vt := dialect.For(d)
	if vt == nil {
		return "", apperrors.Unsupported("unknown dialect %q", d)
	}
	if err := validatePagination(query); err != nil {
		return "", err
	}

	selectClause, err := buildSelect(query, vt)
	if err != nil {
		return "", err
	}
	fromClause := buildFrom(query.Source.Table, vt)
	whereClause := buildWhere(query, vt)
	groupByClause := buildGroupBy(query, vt)
	orderByClause := buildOrderBy(query.Sort)
	limitClause := buildLimit(query)

	return strings.Join([]string{
		selectClause, fromClause, whereClause, groupByClause, orderByClause, limitClause,
	}, "\n"), nil
}

// TranslateCount wraps the translation of query (with limit, offset, and
// server pagination cleared) as a COUNT(*) subquery, per spec §4.1.
func TranslateCount(query *model.QueryModel, d dialect.Name) (string, error) {
	vt := dialect.For(d)
	if vt == nil {
		return "", apperrors.Unsupported("unknown dialect %q", d)
	}

	inner := *query
	inner.Limit = nil
	inner.Offset = nil
	inner.IsServerPagination = false

	innerSQL, err := Translate(&inner, d)
	if err != nil {
		return "", err
	}

	sql := "SELECT COUNT(*) AS count FROM (" + innerSQL + ")"
	if vt.CountSubqueryAlias != "" {
		sql += " " + vt.CountSubqueryAlias
	}
	return sql, nil
}

func validatePagination(query *model.QueryModel) error {
	if query.IsServerPagination {
		if query.Limit == nil || query.Offset == nil {
			return apperrors.InvalidQuery("server pagination requires both limit and offset")
		}
		return nil
	}
	if query.Offset != nil {
		return apperrors.InvalidQuery("offset is only valid with server pagination")
	}
	return nil
}

func buildFrom(table string, vt *dialect.Vtable) string {
	return "FROM " + vt.QuoteTable(table)
}

func buildWhere(query *model.QueryModel, vt *dialect.Vtable) string {
	var conditions []string
	if s := renderFilters(query.Filters, vt); s != "" {
		conditions = append(conditions, s)
	}
	if s := renderTimeRange(query.TimeRange, vt); s != "" {
		conditions = append(conditions, s)
	}
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}

func buildOrderBy(sort []model.Sort) string {
	if len(sort) == 0 {
		return ""
	}
	items := make([]string, len(sort))
	for i, s := range sort {
		items[i] = s.Column + " " + strings.ToUpper(s.Direction)
	}
	return "ORDER BY " + strings.Join(items, ", ")
}

func buildLimit(query *model.QueryModel) string {
	if query.IsServerPagination {
		return "LIMIT " + strconv.Itoa(*query.Limit) + " OFFSET " + strconv.Itoa(*query.Offset)
	}
	if query.Limit != nil {
		return "LIMIT " + strconv.Itoa(*query.Limit)
	}
	return ""
}
