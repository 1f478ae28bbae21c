package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewCorePool connects to the core database. The service name is reported
// to Postgres as application_name so vault sessions are visible in
// pg_stat_activity.
func NewCorePool(ctx context.Context, databaseURL, serviceName string) (*pgxpool.Pool, error) {
	cfg, err := ParseCoreConfig(databaseURL, serviceName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create core db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping core db: %w", err)
	}

	return pool, nil
}

// ParseCoreConfig builds the pool configuration without connecting.
func ParseCoreConfig(databaseURL, serviceName string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse core db config: %w", err)
	}
	if serviceName != "" {
		if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
			cfg.ConnConfig.RuntimeParams["application_name"] = serviceName
		}
	}
	return cfg, nil
}
