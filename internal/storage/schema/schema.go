// Package schema embeds the DDL of the Postgres and ClickHouse stores.
// It imports no store package, so store tests can apply it directly.
package schema

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed postgres/*.sql
var postgresFS embed.FS

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

// Migration is one embedded SQL file.
type Migration struct {
	Name string // file name, e.g. 001_daily_observations.sql
	SQL  string
}

// Postgres returns the daily_observations and trade_records DDL in apply order.
func Postgres() ([]Migration, error) {
	return load(postgresFS, "postgres")
}

// Clickhouse returns the feature_rows and run_summaries DDL in apply order.
func Clickhouse() ([]Migration, error) {
	return load(clickhouseFS, "clickhouse")
}

func load(fsys fs.FS, dir string) ([]Migration, error) {
	names, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list %s migrations: %w", dir, err)
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, Migration{Name: path.Base(name), SQL: string(data)})
	}
	return out, nil
}

// Statements splits m into single statements for drivers that execute one
// statement per call (the ClickHouse native protocol).
func (m Migration) Statements() ([]string, error) {
	if err := checkLiterals(m.SQL); err != nil {
		return nil, fmt.Errorf("migration %s: %w", m.Name, err)
	}
	return splitStatements(m.SQL), nil
}

// splitStatements drops -- comment lines and splits on semicolons.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// checkLiterals rejects semicolons inside single-quoted literals, which the
// splitter would cut. Doubled quotes are escapes.
func checkLiterals(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}
