// Package datamodule provides table-backed vault data modules for the
// platform's verticals.
package datamodule

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB defines the database operations used by table modules.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const defaultOrgColumn = "organization_id"

var identifierRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Definition describes one module as a list of organization-scoped tables.
// Tables are listed parents first; import follows that order and clear
// reverses it. Every table must have an id primary key.
type Definition struct {
	Key          string   `yaml:"key"`
	Dependencies []string `yaml:"dependencies"`
	Tables       []string `yaml:"tables"`
	OrgColumn    string   `yaml:"org_column"`
}

func (d Definition) validate() error {
	if d.Key == "" {
		return fmt.Errorf("module key is required")
	}
	if len(d.Tables) == 0 {
		return fmt.Errorf("module %s: at least one table is required", d.Key)
	}
	seen := make(map[string]bool, len(d.Tables))
	for _, t := range d.Tables {
		if !identifierRe.MatchString(t) {
			return fmt.Errorf("module %s: invalid table name %q", d.Key, t)
		}
		if seen[t] {
			return fmt.Errorf("module %s: duplicate table %q", d.Key, t)
		}
		seen[t] = true
	}
	if d.OrgColumn != "" && !identifierRe.MatchString(d.OrgColumn) {
		return fmt.Errorf("module %s: invalid organization column %q", d.Key, d.OrgColumn)
	}
	return nil
}

// TableModule exports, imports and clears a fixed set of tables for one
// organization. Its fragment is a JSON object mapping table name to an
// array of rows.
type TableModule struct {
	def       Definition
	db        DB
	orgColumn string
}

// NewTableModule validates the definition and creates a module.
func NewTableModule(db DB, def Definition) (*TableModule, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	orgColumn := def.OrgColumn
	if orgColumn == "" {
		orgColumn = defaultOrgColumn
	}
	return &TableModule{def: def, db: db, orgColumn: orgColumn}, nil
}

func (m *TableModule) Key() string { return m.def.Key }

func (m *TableModule) Dependencies() []string { return m.def.Dependencies }

// Tables returns the module's tables in import order.
func (m *TableModule) Tables() []string { return m.def.Tables }

// ExportData reads every table's organization rows ordered by id.
func (m *TableModule) ExportData(ctx context.Context, organizationID string) (json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(m.def.Tables))
	for _, table := range m.def.Tables {
		query := fmt.Sprintf(
			`SELECT COALESCE(jsonb_agg(to_jsonb(t) ORDER BY t.id), '[]'::jsonb) FROM %s t WHERE t.%s = $1`,
			quote(table), quote(m.orgColumn),
		)
		var rows []byte
		if err := m.db.QueryRow(ctx, query, organizationID).Scan(&rows); err != nil {
			return nil, fmt.Errorf("export table %s: %w", table, err)
		}
		out[table] = rows
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode module %s: %w", m.def.Key, err)
	}
	return data, nil
}

// ImportData inserts rows parents first. Rows that already exist or that
// belong to another organization are skipped, so importing the module's
// own export twice is a no-op the second time.
func (m *TableModule) ImportData(ctx context.Context, organizationID string, data json.RawMessage) error {
	var tables map[string]json.RawMessage
	if err := json.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("decode module %s: %w", m.def.Key, err)
	}

	known := make(map[string]bool, len(m.def.Tables))
	for _, t := range m.def.Tables {
		known[t] = true
	}
	for t := range tables {
		if !known[t] {
			return fmt.Errorf("module %s: unexpected table %q in payload", m.def.Key, t)
		}
	}

	for _, table := range m.def.Tables {
		rows, ok := tables[table]
		if !ok {
			continue
		}
		query := fmt.Sprintf(
			`INSERT INTO %[1]s SELECT * FROM jsonb_populate_recordset(NULL::%[1]s, $2::jsonb) r WHERE r.%[2]s = $1 ON CONFLICT (id) DO NOTHING`,
			quote(table), quote(m.orgColumn),
		)
		if _, err := m.db.Exec(ctx, query, organizationID, string(rows)); err != nil {
			return fmt.Errorf("import table %s: %w", table, err)
		}
	}
	return nil
}

// ClearData deletes the organization's rows, children first.
func (m *TableModule) ClearData(ctx context.Context, organizationID string) error {
	for i := len(m.def.Tables) - 1; i >= 0; i-- {
		table := m.def.Tables[i]
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, quote(table), quote(m.orgColumn))
		if _, err := m.db.Exec(ctx, query, organizationID); err != nil {
			return fmt.Errorf("clear table %s: %w", table, err)
		}
	}
	return nil
}

func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}
