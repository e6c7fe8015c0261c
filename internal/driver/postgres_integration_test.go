package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kushal-thakkar/facet/internal/driver/dockertest"
	"github.com/kushal-thakkar/facet/internal/model"
)

func TestPostgresDriver_ConnectExecuteMetadata(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker, skipped in -short runs")
	}
	t.Parallel()
	ctx := context.Background()

	pg, err := dockertest.NewPostgres(ctx, dockertest.PostgresConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close(context.Background()) })

	conn := &model.Connection{
		ID:   "test-postgres",
		Type: model.ConnectionPostgres,
		Config: map[string]any{
			"host":     pg.Host(),
			"port":     pg.Port(),
			"database": pg.Database(),
			"user":     pg.Username(),
			"password": pg.Password(),
		},
	}

	d := newPostgresDriver(conn)
	defer d.Close(ctx)

	ok, msg := d.TestConnection(ctx)
	require.True(t, ok, msg)

	_, _, _, err = d.Execute(ctx, "CREATE TABLE events (id serial PRIMARY KEY, name text)", nil)
	require.NoError(t, err)
	_, _, _, err = d.Execute(ctx, "INSERT INTO events (name) VALUES ('alpha'), ('beta')", nil)
	require.NoError(t, err)

	rows, columns, _, err := d.Execute(ctx, "SELECT * FROM events ORDER BY id", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, columns, 2)
	require.Equal(t, "alpha", rows[0]["name"])

	tables, cols, _, err := d.GetMetadata(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, tables)
	require.NotEmpty(t, cols)
}
