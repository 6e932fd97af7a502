// Package migrations embeds and applies the schema for the vote journal
// (PostgreSQL) and the tally history (ClickHouse).
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// PostgresFS embeds all PostgreSQL migration files.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds all ClickHouse migration files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS

// migrationFile is one embedded SQL file.
type migrationFile struct {
	Name string
	SQL  string
}

// readMigrations returns the non-empty .sql files under dir in lexical order.
func readMigrations(fsys fs.FS, dir string) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	files := make([]migrationFile, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		files = append(files, migrationFile{Name: name, SQL: string(data)})
	}
	return files, nil
}

// Names lists the embedded migration file names for both databases.
func Names() (postgres, clickhouse []string, err error) {
	pg, err := readMigrations(PostgresFS, "postgres")
	if err != nil {
		return nil, nil, err
	}
	ch, err := readMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, nil, err
	}
	for _, f := range pg {
		postgres = append(postgres, f.Name)
	}
	for _, f := range ch {
		clickhouse = append(clickhouse, f.Name)
	}
	return postgres, clickhouse, nil
}
