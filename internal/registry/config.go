package registry

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kushal-thakkar/facet/internal/apperrors"
	"github.com/kushal-thakkar/facet/internal/model"
)

// fileConnection mirrors one entry of connections.yaml's connections list.
type fileConnection struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

type fileConfig struct {
	Connections []fileConnection `yaml:"connections"`
}

var envTokenPattern = regexp.MustCompile(`\$\{FACET_([A-Za-z0-9_]+)\}`)

// LoadConfigFile parses connections.yaml, substitutes ${FACET_*} tokens from
// the environment, and stamps each entry with a stable predef_<index>_<type>
// id, per spec §6. Entries that fail to convert into a model.Connection are
// skipped and logged rather than aborting the whole load, per spec §7's
// ConfigError policy.
func LoadConfigFile(path string, logger *slog.Logger) ([]model.Connection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConfigError(err, "read connections file %s", path)
	}

	var parsed fileConfig
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.ConfigError(err, "parse connections file %s", path)
	}

	var out []model.Connection
	for i, fc := range parsed.Connections {
		conn, err := buildConnection(i, fc, logger)
		if err != nil {
			logger.Warn("skipping connections.yaml entry", "index", i, "name", fc.Name, "error", err)
			continue
		}
		out = append(out, conn)
	}
	return out, nil
}

func buildConnection(index int, fc fileConnection, logger *slog.Logger) (model.Connection, error) {
	if fc.Type == "" {
		return model.Connection{}, apperrors.ConfigError(nil, "entry %d (%s) missing type", index, fc.Name)
	}
	ctype := model.ConnectionType(fc.Type)

	cfg := make(map[string]any, len(fc.Config))
	for k, v := range fc.Config {
		cfg[k] = substituteEnv(k, v, logger)
	}

	return model.Connection{
		ID:         fmt.Sprintf("predef_%d_%s", index, fc.Type),
		Name:       fc.Name,
		Type:       ctype,
		Config:     cfg,
		Predefined: true,
	}, nil
}

// substituteEnv replaces a "${FACET_NAME}" string value with the matching
// environment variable; a missing variable substitutes empty string and
// logs a warning, per spec §6. Non-string values pass through unchanged.
func substituteEnv(key string, v any, logger *slog.Logger) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return envTokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		name := envTokenPattern.FindStringSubmatch(token)[1]
		val, found := os.LookupEnv("FACET_" + name)
		if !found {
			logger.Warn("connections.yaml references unset environment variable", "key", key, "variable", "FACET_"+name)
			return ""
		}
		return val
	})
}

// hasEnvToken reports whether s contains an unresolved ${FACET_*} token.
// Nothing in this package calls it.
func hasEnvToken(s string) bool {
	return strings.Contains(s, "${FACET_")
}
