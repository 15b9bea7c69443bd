package postgres

import (
    "context"
    "embed"
    "fmt"
    "io/fs"
    "log/slog"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/jackc/pgx/v5/stdlib"
    "github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type DB struct {
    Pool *pgxpool.Pool
}

func Connect(ctx context.Context, url string) (*DB, error) {
    cfg, err := pgxpool.ParseConfig(url)
    if err != nil {
        return nil, err
    }
    cfg.MaxConns = 10
    cfg.HealthCheckPeriod = 30 * time.Second
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil {
        return nil, err
    }
    if err := pool.Ping(ctx); err != nil {
        pool.Close()
        return nil, err
    }
    return &DB{Pool: pool}, nil
}

// Migrate applies the embedded goose migrations.
func (db *DB) Migrate(ctx context.Context) error {
    sqlDB := stdlib.OpenDBFromPool(db.Pool)
    defer sqlDB.Close()

    fsys, err := fs.Sub(migrations, "migrations")
    if err != nil {
        return err
    }
    provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
    if err != nil {
        return fmt.Errorf("goose provider: %w", err)
    }
    results, err := provider.Up(ctx)
    if err != nil {
        return fmt.Errorf("migrate up: %w", err)
    }
    for _, r := range results {
        slog.InfoContext(ctx, "migration applied", "version", r.Source.Version, "duration", r.Duration)
    }
    return nil
}

func (db *DB) Close() { db.Pool.Close() }
