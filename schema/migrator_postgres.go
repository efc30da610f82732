package schema

import (
	"slices"

	"github.com/sqldef/dbevolve/database"
)

func init() {
	RegisterMigrator(&PostgresMigrator{})
}

var postgresDialect = doubleQuoted.withPlaceholder(dollarPlaceholder)

type PostgresMigrator struct{}

func (m *PostgresMigrator) Supports(dialect string) bool {
	return slices.Contains([]string{"postgres", "postgresql", "pq"}, dialect)
}

func (m *PostgresMigrator) Generate(change Change) ([]database.Statement, error) {
	d := postgresDialect
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
	case *ColumnDelete:
		return statement("ALTER TABLE %s DROP COLUMN %s", d.quote(c.Table.Name), d.quote(c.Column)), nil
	case *ColumnRename:
		return statement("ALTER TABLE %s RENAME COLUMN %s TO %s", d.quote(c.Table.Name), d.quote(c.Old), d.quote(c.New)), nil
	case *ColumnAlter:
		action := "SET NOT NULL"
		if c.Kind == DropNotNull {
			action = "DROP NOT NULL"
		}
		return statement("ALTER TABLE %s ALTER COLUMN %s %s", d.quote(c.Table.Name), d.quote(c.Field.Name), action), nil
	case *ForeignKeyAdd:
		return statement("ALTER TABLE %s ADD %s", d.quote(c.Table.Name), d.foreignKeyConstraint(c.Table.Name, c.Field)), nil
	case *ForeignKeyDrop:
		return statement("ALTER TABLE %s DROP CONSTRAINT %s", d.quote(c.Table.Name), d.quote(c.Constraint)), nil
	default:
		return nil, &unsupportedChangeError{dialect: "postgres", change: change}
	}
}
