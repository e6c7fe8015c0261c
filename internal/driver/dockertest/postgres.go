package dockertest

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresConfig names the database/credentials a test container is
// created with. Zero values fall back to sane defaults.
type PostgresConfig struct {
	Database       string
	Username       string
	Password       string
	ContainerImage string
}

func (cfg *PostgresConfig) setDefaults() {
	if cfg.Database == "" {
		cfg.Database = "test"
	}
	if cfg.Username == "" {
		cfg.Username = "postgres"
	}
	if cfg.Password == "" {
		cfg.Password = "password"
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = "postgres:16-alpine"
	}
}

// Postgres wraps a running postgres testcontainer and exposes the
// coordinates needed to build a model.Connection against it.
type Postgres struct {
	cfg       PostgresConfig
	host      string
	port      int
	container *postgres.PostgresContainer
}

func (p *Postgres) Host() string     { return p.host }
func (p *Postgres) Port() int        { return p.port }
func (p *Postgres) Database() string { return p.cfg.Database }
func (p *Postgres) Username() string { return p.cfg.Username }
func (p *Postgres) Password() string { return p.cfg.Password }

// Close terminates the container. Call via t.Cleanup.
func (p *Postgres) Close(ctx context.Context) error {
	return p.container.Terminate(ctx)
}

// NewPostgres starts a postgres container and waits for it to accept
// connections, mirroring dockertest.NewClickHouse's retry discipline.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	cfg.setDefaults()

	var container *postgres.PostgresContainer
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		var err error
		container, err = postgres.Run(ctx, cfg.ContainerImage,
			postgres.WithDatabase(cfg.Database),
			postgres.WithUsername(cfg.Username),
			postgres.WithPassword(cfg.Password),
			postgres.BasicWaitStrategies(),
		)
		if err == nil {
			break
		}
		lastErr = err
		time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
	}
	if container == nil {
		return nil, fmt.Errorf("start postgres container after retries: %w", lastErr)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("get postgres container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, fmt.Errorf("get postgres container port: %w", err)
	}

	var port int
	fmt.Sscanf(mapped.Port(), "%d", &port)
	return &Postgres{cfg: cfg, host: host, port: port, container: container}, nil
}
