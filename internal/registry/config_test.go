package registry

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "connections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigFileStampsStableIDs(t *testing.T) {
	path := writeTempConfig(t, `
connections:
  - name: primary
    type: postgres
    config:
      host: localhost
      port: 5432
  - name: warehouse
    type: bigquery
    config:
      project_id: proj
`)

	conns, err := LoadConfigFile(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, "predef_0_postgres", conns[0].ID)
	assert.Equal(t, "predef_1_bigquery", conns[1].ID)
	assert.True(t, conns[0].Predefined)
}

func TestLoadConfigFileSubstitutesEnvTokens(t *testing.T) {
	t.Setenv("FACET_DB_PASSWORD", "hunter2")
	path := writeTempConfig(t, `
connections:
  - name: primary
    type: postgres
    config:
      password: ${FACET_DB_PASSWORD}
`)

	conns, err := LoadConfigFile(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "hunter2", conns[0].Config["password"])
}

func TestLoadConfigFileMissingEnvVarSubstitutesEmptyString(t *testing.T) {
	path := writeTempConfig(t, `
connections:
  - name: primary
    type: postgres
    config:
      password: ${FACET_DEFINITELY_UNSET_TOKEN}
`)

	conns, err := LoadConfigFile(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "", conns[0].Config["password"])
}

func TestLoadConfigFileSkipsEntryMissingType(t *testing.T) {
	path := writeTempConfig(t, `
connections:
  - name: bad
    config:
      host: localhost
  - name: good
    type: postgres
    config:
      host: localhost
`)

	conns, err := LoadConfigFile(path, discardLogger())
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "good", conns[0].Name)
	assert.Equal(t, "predef_1_postgres", conns[0].ID)
}
