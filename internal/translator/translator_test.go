package translator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/model"
)

func intPtr(n int) *int { return &n }

func TestTranslateMinimalPostgresSelect(t *testing.T) {
	q := &model.QueryModel{Source: model.Source{ConnectionID: "c1", Table: "events"}}

	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM public.events\n\n\n\n", sql)
}

func TestTranslateGroupedCount(t *testing.T) {
	q := &model.QueryModel{
		Source: model.Source{ConnectionID: "c1", Table: "events"},
		Filters: []model.FilterNode{
			{Kind: model.FilterCondition, Column: "status", Operator: "=", Value: "active"},
		},
		GroupBy: []string{"service"},
		Agg:     []model.Agg{{Function: model.AggCount, Alias: "event_count"}},
		Sort:    []model.Sort{{Column: "event_count", Direction: "desc"}},
		Limit:   intPtr(10),
	}

	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT service, COUNT(*) AS event_count")
	assert.Contains(t, sql, "FROM public.events")
	assert.Contains(t, sql, "WHERE status = 'active'")
	assert.Contains(t, sql, "GROUP BY service")
	assert.Contains(t, sql, "ORDER BY event_count DESC")
	assert.Contains(t, sql, "LIMIT 10")
}

func TestTranslateNestedOr(t *testing.T) {
	q := &model.QueryModel{
		Source: model.Source{ConnectionID: "c1", Table: "events"},
		Filters: []model.FilterNode{
			{Kind: model.FilterCondition, Column: "ts", Operator: ">=", Value: "2025-03-01T00:00:00Z"},
			{
				Logic: model.LogicOr,
				Conditions: []model.FilterNode{
					{Kind: model.FilterCondition, Column: "country", Operator: "=", Value: "US"},
					{Kind: model.FilterCondition, Column: "country", Operator: "=", Value: "CA"},
				},
			},
		},
	}

	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE ts >= '2025-03-01T00:00:00Z' AND (country = 'US' OR country = 'CA')")
}

func TestTranslateTimeBucketingClickHouse(t *testing.T) {
	q := &model.QueryModel{
		Source:        model.Source{ConnectionID: "c1", Table: "events"},
		Visualization: &model.Visualization{Type: "line"},
		Granularity:   "day",
		TimeRange:     &model.TimeRange{Column: "ts", Range: "last_7_day"},
		GroupBy:       []string{"ts", "service"},
		Agg:           []model.Agg{{Function: model.AggCount, Alias: "n"}},
	}

	sql, err := Translate(q, dialect.ClickHouse)
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT toStartOfDay(ts) AS trunc_ts_day, service, COUNT(*) AS n")
	assert.Contains(t, sql, "GROUP BY trunc_ts_day, service")
}

func TestTranslateThisUnitClickHouse(t *testing.T) {
	cases := []struct {
		unit string
		fn   string
	}{
		{"minute", "toStartOfMinute"},
		{"hour", "toStartOfHour"},
		{"day", "toStartOfDay"},
		{"quarter", "toStartOfQuarter"},
		{"year", "toStartOfYear"},
	}

	for _, c := range cases {
		q := &model.QueryModel{
			Source:    model.Source{ConnectionID: "c1", Table: "events"},
			TimeRange: &model.TimeRange{Column: "ts", Range: "this_" + c.unit},
		}

		sql, err := Translate(q, dialect.ClickHouse)
		require.NoError(t, err)
		assert.Contains(t, sql, fmt.Sprintf("ts >= %s(now())", c.fn))
	}
}

func TestTranslatePaginationCountWrapper(t *testing.T) {
	q := &model.QueryModel{
		Source:             model.Source{ConnectionID: "c1", Table: "events"},
		IsServerPagination: true,
		Limit:              intPtr(50),
		Offset:             intPtr(100),
	}

	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, sql, "LIMIT 50 OFFSET 100")

	countSQL, err := TranslateCount(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, countSQL, "SELECT COUNT(*) AS count FROM (")
	assert.NotContains(t, countSQL, "LIMIT")

	chCount, err := TranslateCount(q, dialect.ClickHouse)
	require.NoError(t, err)
	assert.Contains(t, chCount, "AS sub_query")
}

func TestTranslateContainsOperatorDialectSplit(t *testing.T) {
	q := &model.QueryModel{
		Source: model.Source{ConnectionID: "c1", Table: "events"},
		Filters: []model.FilterNode{
			{Kind: model.FilterCondition, Column: "name", Operator: "contains", Value: "Jo"},
		},
	}

	pgSQL, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, pgSQL, "name ILIKE '%Jo%'")

	chSQL, err := Translate(q, dialect.ClickHouse)
	require.NoError(t, err)
	assert.Contains(t, chSQL, "name LIKE '%Jo%'")
}

func TestTranslateServerPaginationRequiresOffset(t *testing.T) {
	q := &model.QueryModel{
		Source:             model.Source{ConnectionID: "c1", Table: "events"},
		IsServerPagination: true,
		Limit:              intPtr(50),
	}
	_, err := Translate(q, dialect.Postgres)
	assert.Error(t, err)
}

func TestTranslateOffsetWithoutPaginationFails(t *testing.T) {
	q := &model.QueryModel{
		Source: model.Source{ConnectionID: "c1", Table: "events"},
		Offset: intPtr(5),
	}
	_, err := Translate(q, dialect.Postgres)
	assert.Error(t, err)
}

func TestTranslateUnsupportedOperatorOmitsClauseWithoutFailing(t *testing.T) {
	q := &model.QueryModel{
		Source: model.Source{ConnectionID: "c1", Table: "events"},
		Filters: []model.FilterNode{
			{Kind: model.FilterCondition, Column: "x", Operator: "bogus", Value: 1},
		},
	}
	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
}

func TestTranslateEscapesEmbeddedSingleQuote(t *testing.T) {
	q := &model.QueryModel{
		Source: model.Source{ConnectionID: "c1", Table: "events"},
		Filters: []model.FilterNode{
			{Kind: model.FilterCondition, Column: "name", Operator: "=", Value: "O'Brien"},
		},
	}
	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, sql, "name = 'O''Brien'")
}

func TestTranslateTableVisualizationWithSelectedFieldsNonCount(t *testing.T) {
	q := &model.QueryModel{
		Source:         model.Source{ConnectionID: "c1", Table: "events"},
		Visualization:  &model.Visualization{Type: "table"},
		GroupBy:        []string{"service"},
		Agg:            []model.Agg{{Function: model.AggSum}},
		SelectedFields: []string{"latency_ms"},
	}
	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT service, SUM(latency_ms) AS latency_ms_sum")
}

func TestTranslateTimeRangeAbsentColumnEmitsNoClause(t *testing.T) {
	q := &model.QueryModel{
		Source:    model.Source{ConnectionID: "c1", Table: "events"},
		TimeRange: &model.TimeRange{Range: "last_1_day"},
	}
	sql, err := Translate(q, dialect.Postgres)
	require.NoError(t, err)
	assert.NotContains(t, sql, "WHERE")
}
