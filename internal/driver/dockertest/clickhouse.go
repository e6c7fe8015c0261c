// Package dockertest spins up disposable ClickHouse and Postgres containers
// for driver integration tests, adapted from api/testing/clickhouse.go:
// generalized to hand back plain connection coordinates instead of
// mutating a package-global config.DB, since the gateway builds a fresh
// driver per connection rather than holding one global pool.
package dockertest

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	tcch "github.com/testcontainers/testcontainers-go/modules/clickhouse"
)

// ClickHouseConfig names the database/credentials a test container is
// created with. Zero values fall back to sane defaults.
type ClickHouseConfig struct {
	Database       string
	Username       string
	Password       string
	ContainerImage string
}

func (cfg *ClickHouseConfig) setDefaults() {
	if cfg.Database == "" {
		cfg.Database = "test"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Password == "" {
		cfg.Password = "password"
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = "clickhouse/clickhouse-server:latest"
	}
}

// ClickHouse wraps a running ClickHouse testcontainer and exposes the
// coordinates needed to build a model.Connection against it.
type ClickHouse struct {
	cfg       ClickHouseConfig
	host      string
	port      string
	container *tcch.ClickHouseContainer
}

func (c *ClickHouse) Host() string     { return c.host }
func (c *ClickHouse) Port() int        { var p int; fmt.Sscanf(c.port, "%d", &p); return p }
func (c *ClickHouse) Database() string { return c.cfg.Database }
func (c *ClickHouse) Username() string { return c.cfg.Username }
func (c *ClickHouse) Password() string { return c.cfg.Password }

// Close terminates the container. Call via t.Cleanup.
func (c *ClickHouse) Close(ctx context.Context) error {
	return c.container.Terminate(ctx)
}

// NewClickHouse starts a ClickHouse container, making up to 3 start
// attempts in total, per the teacher's retry discipline.
func NewClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouse, error) {
	cfg.setDefaults()

	var container *tcch.ClickHouseContainer
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		var err error
		container, err = tcch.Run(ctx, cfg.ContainerImage,
			tcch.WithDatabase(cfg.Database),
			tcch.WithUsername(cfg.Username),
			tcch.WithPassword(cfg.Password),
		)
		if err == nil {
			break
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
	}
	if container == nil {
		return nil, fmt.Errorf("start clickhouse container after retries: %w", lastErr)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("get clickhouse container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port("9000/tcp"))
	if err != nil {
		return nil, fmt.Errorf("get clickhouse container port: %w", err)
	}

	return &ClickHouse{cfg: cfg, host: host, port: mapped.Port(), container: container}, nil
}
