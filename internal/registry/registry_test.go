package registry

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/model"
)

func TestRegistryGetResolvesPredefinedThenSession(t *testing.T) {
	predefined := []model.Connection{{ID: "predef_0_postgres", Name: "primary", Type: model.ConnectionPostgres}}
	reg := New(predefined)

	conn, err := reg.Get("predef_0_postgres")
	require.NoError(t, err)
	assert.Equal(t, "primary", conn.Name)

	created := reg.Create("scratch", model.ConnectionClickHouse, map[string]any{"host": "localhost"})
	fetched, err := reg.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "scratch", fetched.Name)
}

func TestRegistryGetUnknownIDReturnsNotFound(t *testing.T) {
	reg := New(nil)
	_, err := reg.Get("missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRegistryCreateStampsTimestampsFromClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(nil)
	reg.Clock = clock

	conn := reg.Create("scratch", model.ConnectionPostgres, nil)
	assert.Equal(t, clock.Now(), conn.CreatedAt)
	assert.Equal(t, clock.Now(), conn.UpdatedAt)
}

func TestRegistryUpdateRejectsPredefinedConnection(t *testing.T) {
	predefined := []model.Connection{{ID: "predef_0_postgres", Name: "primary"}}
	reg := New(predefined)

	_, err := reg.Update("predef_0_postgres", "renamed", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestRegistryUpdateMutatesSessionConnection(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := New(nil)
	reg.Clock = clock
	created := reg.Create("scratch", model.ConnectionPostgres, map[string]any{"host": "a"})

	clock.Advance(time.Minute)
	updated, err := reg.Update(created.ID, "renamed", map[string]any{"host": "b"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "b", updated.Config["host"])
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestRegistryDeleteRejectsPredefinedConnection(t *testing.T) {
	predefined := []model.Connection{{ID: "predef_0_postgres", Name: "primary"}}
	reg := New(predefined)

	err := reg.Delete("predef_0_postgres")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestRegistryDeleteRemovesSessionConnection(t *testing.T) {
	reg := New(nil)
	created := reg.Create("scratch", model.ConnectionPostgres, nil)

	require.NoError(t, reg.Delete(created.ID))
	_, err := reg.Get(created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
