package schema

import (
	"slices"

	"github.com/sqldef/dbevolve/database"
)

func init() {
	RegisterMigrator(&MysqlMigrator{})
}

var mysqlDialect = backQuoted.withPlaceholder(questionPlaceholder)

// MysqlMigrator declares foreign keys as table constraints, since MySQL parses and then ignores
// inline REFERENCES clauses.
type MysqlMigrator struct{}

func (m *MysqlMigrator) Supports(dialect string) bool {
	return slices.Contains([]string{"mysql", "mariadb"}, dialect)
}

func (m *MysqlMigrator) Generate(change Change) ([]database.Statement, error) {
	d := mysqlDialect
	switch c := change.(type) {
	case *TableAdd:
		return statement("%s", d.createTable(c.Table.Name, c.Table, true, c.Defers)), nil
	case *TableDelete:
		return statement("DROP TABLE %s", d.quote(c.Name)), nil
	case *TableRename:
		return statement("RENAME TABLE %s TO %s", d.quote(c.Old), d.quote(c.New)), nil
	case *ColumnAdd:
		table := d.quote(c.Table.Name)
		statements := statement("ALTER TABLE %s ADD COLUMN %s", table, d.columnDefinition(c.Field, true))
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
		return statement("ALTER TABLE %s RENAME COLUMN %s TO %s", d.quote(c.Table.Name), d.quote(c.Old), d.quote(c.New)), nil
	case *ColumnAlter:
		return statement("ALTER TABLE %s MODIFY COLUMN %s", d.quote(c.Table.Name), d.columnDefinition(c.Field, c.Kind == DropNotNull)), nil
	case *ForeignKeyAdd:
		return statement("ALTER TABLE %s ADD %s", d.quote(c.Table.Name), d.foreignKeyConstraint(c.Table.Name, c.Field)), nil
	case *ForeignKeyDrop:
		return statement("ALTER TABLE %s DROP FOREIGN KEY %s", d.quote(c.Table.Name), d.quote(c.Constraint)), nil
	default:
		return nil, &unsupportedChangeError{dialect: "mysql", change: change}
	}
}
