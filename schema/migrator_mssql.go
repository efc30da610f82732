package schema

import (
	"slices"

	"github.com/sqldef/dbevolve/database"
)

func init() {
	RegisterMigrator(&MssqlMigrator{})
}

var mssqlDialect = bracketed.withPlaceholder(atPlaceholder)

type MssqlMigrator struct{}

func (m *MssqlMigrator) Supports(dialect string) bool {
	return slices.Contains([]string{"mssql", "sqlserver"}, dialect)
}

func (m *MssqlMigrator) Generate(change Change) ([]database.Statement, error) {
	d := mssqlDialect
	switch c := change.(type) {
	case *TableAdd:
		return statement("%s", d.createTable(c.Table.Name, c.Table, true, c.Defers)), nil
	case *TableDelete:
		return statement("DROP TABLE %s", d.quote(c.Name)), nil
	case *TableRename:
		return []database.Statement{{
			SQL:  "EXEC sp_rename @p1, @p2",
			Args: []any{c.Old, c.New},
		}}, nil
	case *ColumnAdd:
		table := d.quote(c.Table.Name)
		statements := statement("ALTER TABLE %s ADD %s", table, d.columnDefinition(c.Field, true))
		if c.Field.IsForeignKey() {
			statements = append(statements, statement("ALTER TABLE %s ADD %s", table, d.foreignKeyConstraint(c.Table.Name, c.Field))...)
		}
		return statements, nil
	case *ColumnBackfill:
		return []database.Statement{d.backfill(c)}, nil
	case *Warning:
		return []database.Statement{warningStatement(c)}, nil
	case *ColumnDelete:
		return statement("ALTER TABLE %s DROP COLUMN %s", d.quote(c.Table.Name), d.quote(c.Column)), nil
	case *ColumnRename:
		return []database.Statement{{
			SQL:  "EXEC sp_rename @p1, @p2, 'COLUMN'",
			Args: []any{c.Table.Name + "." + c.Old, c.New},
		}}, nil
	case *ColumnAlter:
		return statement("ALTER TABLE %s ALTER COLUMN %s", d.quote(c.Table.Name), d.columnDefinition(c.Field, c.Kind == DropNotNull)), nil
	case *ForeignKeyAdd:
		return statement("ALTER TABLE %s ADD %s", d.quote(c.Table.Name), d.foreignKeyConstraint(c.Table.Name, c.Field)), nil
	case *ForeignKeyDrop:
		return statement("ALTER TABLE %s DROP CONSTRAINT %s", d.quote(c.Table.Name), d.quote(c.Constraint)), nil
	default:
		return nil, &unsupportedChangeError{dialect: "mssql", change: change}
	}
}
