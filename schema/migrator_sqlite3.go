package schema

import (
	"fmt"
	"slices"

	"github.com/sqldef/dbevolve/database"
)

func init() {
	RegisterMigrator(&Sqlite3Migrator{})
}

var sqlite3Dialect = doubleQuoted.withPlaceholder(questionPlaceholder)

const rebuildTablePrefix = "__dbevolve_new_"

// Sqlite3Migrator rebuilds a table for every change SQLite's ALTER TABLE cannot express:
// nullability, foreign keys and dropped columns.
type Sqlite3Migrator struct{}

func (m *Sqlite3Migrator) Supports(dialect string) bool {
	return slices.Contains([]string{"sqlite3", "sqlite"}, dialect)
}

func (m *Sqlite3Migrator) NeedsRebuild(change Change) bool {
	switch change.(type) {
	case *ColumnAlter, *ColumnDelete, *ForeignKeyAdd, *ForeignKeyDrop:
		return true
	default:
		return false
	}
}

// RebuildTable recreates the table from its declaration and copies the declared columns over.
// Every declared column must exist in the old table by then.
func (m *Sqlite3Migrator) RebuildTable(table *DeclaredTable) ([]database.Statement, error) {
	d := sqlite3Dialect
	tmp := rebuildTablePrefix + table.Name
	columns := d.quoteAll(table.FieldNames())
	return []database.Statement{
		{SQL: d.createTable(tmp, table, false, noDeferral)},
		{SQL: fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", d.quote(tmp), columns, columns, d.quote(table.Name))},
		{SQL: fmt.Sprintf("DROP TABLE %s", d.quote(table.Name))},
		{SQL: fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.quote(tmp), d.quote(table.Name))},
	}, nil
}

func (m *Sqlite3Migrator) Generate(change Change) ([]database.Statement, error) {
	d := sqlite3Dialect
	if m.NeedsRebuild(change) {
		return m.RebuildTable(declaredTableOf(change))
	}
	switch c := change.(type) {
	case *TableAdd:
		return statement("%s", d.createTable(c.Table.Name, c.Table, false, c.Defers)), nil
	case *TableDelete:
		return statement("DROP TABLE %s", d.quote(c.Name)), nil
	case *TableRename:
		return statement("ALTER TABLE %s RENAME TO %s", d.quote(c.Old), d.quote(c.New)), nil
	case *ColumnAdd:
		definition := d.columnDefinition(c.Field, true)
		if c.Field.IsForeignKey() {
			definition += " " + d.references(c.Field.References)
		}
		return statement("ALTER TABLE %s ADD COLUMN %s", d.quote(c.Table.Name), definition), nil
	case *ColumnBackfill:
		return []database.Statement{d.backfill(c)}, nil
	case *Warning:
		return []database.Statement{warningStatement(c)}, nil
	case *ColumnRename:
		return statement("ALTER TABLE %s RENAME COLUMN %s TO %s", d.quote(c.Table.Name), d.quote(c.Old), d.quote(c.New)), nil
	default:
		return nil, &unsupportedChangeError{dialect: "sqlite3", change: change}
	}
}
