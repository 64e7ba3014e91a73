package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// RequiredTables lists the tables the lifecycle reads and writes.
var RequiredTables = []string{
	"trips", "trip_stops", "trip_members", "trip_reports",
	"vehicles", "drivers", "notifications", "claims",
}

// Migrate applies the embedded schema. Every statement is CREATE ... IF NOT EXISTS.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range splitStatements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func splitStatements(src string) []string {
	out := []string{}
	for _, part := range strings.Split(src, ";") {
		lines := []string{}
		for _, l := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(l), "--") {
				continue
			}
			lines = append(lines, l)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// HasTable reports whether table exists in the current schema.
func HasTable(ctx context.Context, q DBTX, table string) bool {
	var name sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		LIMIT 1
	`, table).Scan(&name)
	if err != nil {
		return false
	}
	return name.Valid && name.String != ""
}

// MissingTables returns the required tables that are absent.
func MissingTables(ctx context.Context, q DBTX) []string {
	missing := []string{}
	for _, t := range RequiredTables {
		if !HasTable(ctx, q, t) {
			missing = append(missing, t)
		}
	}
	return missing
}
