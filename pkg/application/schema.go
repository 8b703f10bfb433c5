package application

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SchemaManager collects embedded DDL files from modules and applies them at
// startup. Schema files must be idempotent (CREATE TABLE IF NOT EXISTS).
type SchemaManager interface {
	RegisterSchema(fsys *embed.FS)
	Apply(ctx context.Context) error
}

func NewSchemaManager(pool *pgxpool.Pool) SchemaManager {
	return &schemaManager{pool: pool}
}

type schemaManager struct {
	pool    *pgxpool.Pool
	schemas []*embed.FS
}

func (m *schemaManager) RegisterSchema(fsys *embed.FS) {
	m.schemas = append(m.schemas, fsys)
}

func (m *schemaManager) Apply(ctx context.Context) error {
	if m.pool == nil {
		return nil
	}
	for _, fsys := range m.schemas {
		files, err := listSQLFiles(fsys)
		if err != nil {
			return err
		}
		for _, file := range files {
			ddl, err := fsys.ReadFile(file)
			if err != nil {
				return fmt.Errorf("error reading schema file %q: %w", file, err)
			}
			if _, err := m.pool.Exec(ctx, string(ddl)); err != nil {
				return fmt.Errorf("error applying schema file %q: %w", file, err)
			}
		}
	}
	return nil
}

func listSQLFiles(fsys *embed.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".sql") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error reading schema directory: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
