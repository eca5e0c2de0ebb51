// Package db opens the local SQLite database skillcms keeps drafts in and
// applies its schema migrations.
package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// BasePathEnv overrides the directory the database lives in
const BasePathEnv = "SKILLCMS_BASE_PATH"

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
}

// DefaultDBPath returns $SKILLCMS_BASE_PATH/storage.db or ~/.skillcms/storage.db
func DefaultDBPath() (string, error) {
	if base := os.Getenv(BasePathEnv); base != "" {
		return filepath.Join(base, "storage.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillcms", "storage.db"), nil
}

// Open opens or creates the database at path, configures it and applies migrations
func Open(ctx context.Context, path string, migrations []Migration) (*sqlx.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if err := configure(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	if len(migrations) > 0 {
		if err := NewMigrationRunner(conn).Run(ctx, migrations); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return conn, nil
}

func configure(ctx context.Context, conn *sqlx.DB) error {
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			return errors.Wrapf(err, "failed to execute pragma: %s", p)
		}
	}

	// a single connection keeps WAL writers serialized
	conn.SetMaxIdleConns(1)
	conn.SetMaxOpenConns(1)

	var mode string
	if err := conn.GetContext(ctx, &mode, "PRAGMA journal_mode"); err != nil {
		return errors.Wrap(err, "failed to query journal mode")
	}
	if strings.ToLower(mode) != "wal" {
		return errors.Errorf("WAL mode not enabled. Current mode: %s", mode)
	}
	return nil
}
