package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "sleep-futures/internal/storage/clickhouse"
	"sleep-futures/internal/storage/schema"
)

// RunClickhouseMigrations creates the DSN database if needed and applies the
// feature_rows and run_summaries DDL. The returned connection points at that
// database and backs the feature and run summary stores.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	ms, err := schema.Clickhouse()
	if err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	// DDL is CREATE ... IF NOT EXISTS, so every file is replayed.
	for _, m := range ms {
		stmts, err := m.Statements()
		if err != nil {
			conn.Close()
			return nil, err
		}
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.Name, err)
			}
		}
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, name string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}

// quoteIdent backquotes a ClickHouse identifier.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
