package metadata

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushal-thakkar/facet/internal/dialect"
	"github.com/kushal-thakkar/facet/internal/driver"
	"github.com/kushal-thakkar/facet/internal/model"
)

// fakeDriver implements driver.Driver, counting GetMetadata calls so tests
// can assert the lazy single-refresh-on-miss discipline of spec §4.3.
type fakeDriver struct {
	calls   atomic.Int32
	tables  []model.TableMetadata
	columns []model.ColumnMetadata
	err     error
}

func (f *fakeDriver) Connect(ctx context.Context) error { return nil }
func (f *fakeDriver) TestConnection(ctx context.Context) (bool, string) { return true, "ok" }
func (f *fakeDriver) GetMetadata(ctx context.Context) ([]model.TableMetadata, []model.ColumnMetadata, []model.RelationshipMetadata, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, nil, nil, f.err
	}
	return f.tables, f.columns, nil, nil
}
func (f *fakeDriver) Execute(ctx context.Context, sql string, params map[string]any) ([]model.Row, []driver.Column, time.Duration, error) {
	return nil, nil, 0, nil
}
func (f *fakeDriver) StreamExecute(ctx context.Context, sql string, params map[string]any) (<-chan driver.StreamBatch, error) {
	return nil, nil
}
func (f *fakeDriver) Explain(ctx context.Context, sql string, params map[string]any) (map[string]any, error) {
	return nil, nil
}
func (f *fakeDriver) GetDialect() dialect.Name { return dialect.Postgres }
func (f *fakeDriver) Close(ctx context.Context) error { return nil }

func TestServiceGetTablesRefreshesOnceOnMiss(t *testing.T) {
	d := &fakeDriver{tables: []model.TableMetadata{{Name: "events"}}}
	conn := &model.Connection{ID: "conn1"}
	svc := NewService()

	tables, err := svc.GetTables(context.Background(), conn, d)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.NotNil(t, tables[0].RefreshedAt)

	_, err = svc.GetTables(context.Background(), conn, d)
	require.NoError(t, err)
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestServiceRefreshStampsRefreshedAtFromClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := &fakeDriver{tables: []model.TableMetadata{{Name: "events"}}}
	conn := &model.Connection{ID: "conn1"}
	svc := NewService()
	svc.Clock = clock

	require.NoError(t, svc.Refresh(context.Background(), conn, d))
	tables, err := svc.GetTables(context.Background(), conn, d)
	require.NoError(t, err)
	require.NotNil(t, tables[0].RefreshedAt)
	assert.Equal(t, clock.Now(), *tables[0].RefreshedAt)
}

func TestServiceRefreshErrorLeavesCacheUntouched(t *testing.T) {
	d := &fakeDriver{tables: []model.TableMetadata{{Name: "events"}}}
	conn := &model.Connection{ID: "conn1"}
	svc := NewService()

	_, err := svc.GetTables(context.Background(), conn, d)
	require.NoError(t, err)

	d.err = assertError{"boom"}
	err = svc.Refresh(context.Background(), conn, d)
	require.Error(t, err)

	tables, err := svc.GetTables(context.Background(), conn, d)
	require.NoError(t, err)
	require.Len(t, tables, 1, "cache should retain the prior successful triple")
}

func TestServiceUpdateTableMetadataMutatesDisplayFieldsOnly(t *testing.T) {
	d := &fakeDriver{tables: []model.TableMetadata{{Name: "events", Explorable: true}}}
	conn := &model.Connection{ID: "conn1"}
	svc := NewService()
	_, err := svc.GetTables(context.Background(), conn, d)
	require.NoError(t, err)

	display := "Events Table"
	updated, err := svc.UpdateTableMetadata("conn1", "events", model.TableMetadataPatch{DisplayName: &display})
	require.NoError(t, err)
	assert.Equal(t, "Events Table", updated.DisplayName)
	assert.True(t, updated.Explorable)
}

func TestServiceUpdateTableMetadataUnknownTableReturnsNotFound(t *testing.T) {
	d := &fakeDriver{tables: []model.TableMetadata{{Name: "events"}}}
	conn := &model.Connection{ID: "conn1"}
	svc := NewService()
	_, err := svc.GetTables(context.Background(), conn, d)
	require.NoError(t, err)

	_, err = svc.UpdateTableMetadata("conn1", "missing", model.TableMetadataPatch{})
	assert.Error(t, err)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
