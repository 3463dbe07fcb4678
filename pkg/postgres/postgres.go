package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	URL             string `envconfig:"DATABASE_URL"`
	MaxConns        int32  `envconfig:"DATABASE_MAX_CONNS" default:"5"`
	ConnectTimeout  int    `envconfig:"DATABASE_CONNECT_TIMEOUT" default:"5"`
	MaxConnIdleTime string `envconfig:"DATABASE_MAX_CONN_IDLE" default:"5m"`
}

// Enabled reports whether a database URL was configured.
func (c *Config) Enabled() bool {
	return c.URL != ""
}

func (c *Config) NewPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	config, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}
	if c.MaxConns > 0 {
		config.MaxConns = c.MaxConns
	}
	if idle, err := time.ParseDuration(c.MaxConnIdleTime); err == nil {
		config.MaxConnIdleTime = idle
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(c.ConnectTimeout)*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
