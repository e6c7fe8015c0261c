package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kushal-thakkar/facet/internal/driver/dockertest"
	"github.com/kushal-thakkar/facet/internal/model"
)

func TestClickHouseDriver_ConnectExecuteMetadata(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker, skipped in -short runs")
	}
	t.Parallel()
	ctx := context.Background()

	ch, err := dockertest.NewClickHouse(ctx, dockertest.ClickHouseConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close(context.Background()) })

	conn := &model.Connection{
		ID:   "test-clickhouse",
		Type: model.ConnectionClickHouse,
		Config: map[string]any{
			"host":     ch.Host(),
			"port":     ch.Port(),
			"database": ch.Database(),
			"user":     ch.Username(),
			"password": ch.Password(),
		},
	}

	d := newClickHouseDriver(conn)
	defer d.Close(ctx)

	ok, msg := d.TestConnection(ctx)
	require.True(t, ok, msg)

	err = d.db.Exec(ctx, "CREATE TABLE events (id UInt32, name String) ENGINE = Memory")
	require.NoError(t, err)
	err = d.db.Exec(ctx, "INSERT INTO events VALUES (1, 'alpha'), (2, 'beta')")
	require.NoError(t, err)

	rows, columns, _, err := d.Execute(ctx, "SELECT * FROM events ORDER BY id", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, columns, 2)
	require.Equal(t, "alpha", rows[0]["name"])

	tables, cols, _, err := d.GetMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, "events", tables[0].Name)
	require.Len(t, cols, 2)
}
