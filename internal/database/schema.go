package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

// Schema is the DDL of every table the service reads or writes.
//
//go:embed schema.sql
var Schema string

// Statements splits Schema into single statements, dropping comments, so
// it can be applied without the multiStatements DSN option.
func Statements() []string {
	var out []string
	var cur strings.Builder
	for _, line := range strings.Split(Schema, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSuffix(strings.TrimSpace(cur.String()), ";"))
			cur.Reset()
		}
	}
	return out
}

// ApplySchema creates any missing tables.  Used by local setups and the
// integration tests; production schemas are managed by migrations.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
