package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/model"
)

func TestNewRejectsConnectionMissingRequiredConfigKeys(t *testing.T) {
	conn := &model.Connection{
		ID:   "conn1",
		Type: model.ConnectionPostgres,
		Config: map[string]any{
			"host": "localhost",
			"port": 5432,
		},
	}

	d, err := New(conn)
	require.Nil(t, d)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConfigError)
	assert.Contains(t, err.Error(), "database")
	assert.Contains(t, err.Error(), "user")
	assert.Contains(t, err.Error(), "password")
}

func TestNewBuildsDriverWhenAllRequiredConfigKeysPresent(t *testing.T) {
	conn := &model.Connection{
		ID:   "conn2",
		Type: model.ConnectionPostgres,
		Config: map[string]any{
			"host":     "localhost",
			"port":     5432,
			"database": "facet",
			"user":     "facet",
			"password": "secret",
		},
	}

	d, err := New(conn)
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestNewUnknownConnectionTypeReturnsUnsupported(t *testing.T) {
	conn := &model.Connection{ID: "conn3", Type: "not-a-real-type"}

	d, err := New(conn)
	require.Nil(t, d)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
}
