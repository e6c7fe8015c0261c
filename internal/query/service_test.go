package query

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/driver"
	"github.com/kushal-thakkar/facet/internal/model"
)

type fakeResolver struct {
	conn model.Connection
	err  error
}

func (r fakeResolver) Get(id string) (model.Connection, error) { return r.conn, r.err }

type fakeDriver struct {
	dialect    dialect.Name
	countRows  []model.Row
	countErr   error
	rows       []model.Row
	columns    []driver.Column
	execErr    error
	closeCalls int
}

func (d *fakeDriver) Connect(ctx context.Context) error { return nil }
func (d *fakeDriver) TestConnection(ctx context.Context) (bool, string) { return true, "ok" }
func (d *fakeDriver) GetMetadata(ctx context.Context) ([]model.TableMetadata, []model.ColumnMetadata, []model.RelationshipMetadata, error) {
	return nil, nil, nil, nil
}
func (d *fakeDriver) Execute(ctx context.Context, sql string, params map[string]any) ([]model.Row, []driver.Column, time.Duration, error) {
	if len(sql) > 6 && sql[:6] == "SELECT" && containsCount(sql) {
		if d.countErr != nil {
			return nil, nil, 0, d.countErr
		}
		return d.countRows, nil, time.Millisecond, nil
	}
	if d.execErr != nil {
		return nil, nil, 0, d.execErr
	}
	return d.rows, d.columns, time.Millisecond, nil
}
func (d *fakeDriver) StreamExecute(ctx context.Context, sql string, params map[string]any) (<-chan driver.StreamBatch, error) {
	return nil, nil
}
func (d *fakeDriver) Explain(ctx context.Context, sql string, params map[string]any) (map[string]any, error) {
	return nil, nil
}
func (d *fakeDriver) GetDialect() dialect.Name { return d.dialect }
func (d *fakeDriver) Close(ctx context.Context) error { d.closeCalls++; return nil }

func containsCount(sql string) bool {
	for i := 0; i+len("COUNT(*)") <= len(sql); i++ {
		if sql[i:i+len("COUNT(*)")] == "COUNT(*)" {
			return true
		}
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(conn model.Connection, d driver.Driver) *Service {
	return &Service{
		Connections: fakeResolver{conn: conn},
		NewDriver:   func(c *model.Connection) (driver.Driver, error) { return d, nil },
		Logger:      discardLogger(),
	}
}

func TestServiceExecuteUnknownConnectionReturnsNotFound(t *testing.T) {
	svc := &Service{
		Connections: fakeResolver{err: apperrors.NotFound("connection %q not found", "missing")},
		Logger:      discardLogger(),
	}
	_, err := svc.Execute(context.Background(), "missing", &model.QueryModel{Source: model.Source{Table: "events"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestServiceExecuteReturnsResultAndAlwaysCloses(t *testing.T) {
	d := &fakeDriver{
		dialect: dialect.Postgres,
		rows:    []model.Row{{"id": 1}},
		columns: []driver.Column{{Name: "id"}},
	}
	svc := newTestService(model.Connection{ID: "conn1", Type: model.ConnectionPostgres}, d)

	result, err := svc.Execute(context.Background(), "conn1", &model.QueryModel{Source: model.Source{Table: "events"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Equal(t, "FROM public.events", sqlContainsFrom(result.SQL))
	assert.Equal(t, 1, d.closeCalls)
}

func sqlContainsFrom(sql string) string {
	for _, line := range splitLines(sql) {
		if len(line) >= 4 && line[:4] == "FROM" {
			return line
		}
	}
	return ""
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func TestServiceExecuteServerPaginationComputesHasMore(t *testing.T) {
	d := &fakeDriver{
		dialect:   dialect.Postgres,
		countRows: []model.Row{{"count": int64(150)}},
		rows:      []model.Row{{"id": 1}, {"id": 2}},
		columns:   []driver.Column{{Name: "id"}},
	}
	svc := newTestService(model.Connection{ID: "conn1", Type: model.ConnectionPostgres}, d)

	limit, offset := 2, 0
	q := &model.QueryModel{
		Source:             model.Source{Table: "events"},
		Limit:              &limit,
		Offset:             &offset,
		IsServerPagination: true,
	}

	result, err := svc.Execute(context.Background(), "conn1", q)
	require.NoError(t, err)
	require.NotNil(t, result.TotalCount)
	assert.Equal(t, int64(150), *result.TotalCount)
	assert.True(t, result.HasMore)
}

func TestServiceExecuteBackendFailureDuringExecuteFoldsIntoResult(t *testing.T) {
	d := &fakeDriver{
		dialect: dialect.Postgres,
		execErr: apperrors.BackendError(assertError{"connection refused"}, "execute postgres query"),
	}
	svc := newTestService(model.Connection{ID: "conn1", Type: model.ConnectionPostgres}, d)

	result, err := svc.Execute(context.Background(), "conn1", &model.QueryModel{Source: model.Source{Table: "events"}})
	require.NoError(t, err, "backend failures during execute fold into the result envelope, not an error return")
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, 0, result.RowCount)
	assert.Equal(t, 1, d.closeCalls)
}

func TestServiceExecuteInvalidPaginationSurfacesBeforeExecute(t *testing.T) {
	d := &fakeDriver{dialect: dialect.Postgres}
	svc := newTestService(model.Connection{ID: "conn1", Type: model.ConnectionPostgres}, d)

	offset := 10
	q := &model.QueryModel{Source: model.Source{Table: "events"}, Offset: &offset}

	_, err := svc.Execute(context.Background(), "conn1", q)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
	assert.Equal(t, 1, d.closeCalls, "driver must still be closed when translation fails")
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
