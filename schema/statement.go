package schema

import (
	"fmt"
	"strings"

	"github.com/sqldef/dbevolve/database"
	"github.com/sqldef/dbevolve/util"
)

// sqlDialect holds the lexical conventions of a dialect.
type sqlDialect struct {
	quoteOpen   string
	quoteClose  string
	placeholder func(position int) string
}

var (
	doubleQuoted = sqlDialect{quoteOpen: `"`, quoteClose: `"`}
	backQuoted   = sqlDialect{quoteOpen: "`", quoteClose: "`"}
	bracketed    = sqlDialect{quoteOpen: "[", quoteClose: "]"}
)

func (d sqlDialect) withPlaceholder(placeholder func(int) string) sqlDialect {
	d.placeholder = placeholder
	return d
}

func dollarPlaceholder(position int) string { return fmt.Sprintf("$%d", position) }
func questionPlaceholder(int) string       { return "?" }
func atPlaceholder(position int) string    { return fmt.Sprintf("@p%d", position) }

// quote escapes an identifier, doubling the closing quote character inside it.
func (d sqlDialect) quote(name string) string {
	return d.quoteOpen + strings.ReplaceAll(name, d.quoteClose, d.quoteClose+d.quoteClose) + d.quoteClose
}

func (d sqlDialect) quoteAll(names []string) string {
	return strings.Join(util.TransformSlice(names, d.quote), ", ")
}

// columnDefinition is the column part of CREATE TABLE and ADD COLUMN. Nullability is always
// spelled out.
func (d sqlDialect) columnDefinition(field *DeclaredField, nullable bool) string {
	definition := fmt.Sprintf("%s %s", d.quote(field.Name), field.Type)
	if nullable {
		return definition + " NULL"
	}
	return definition + " NOT NULL"
}

func (d sqlDialect) references(ref *Reference) string {
	return fmt.Sprintf("REFERENCES %s (%s)", d.quote(ref.Table), d.quote(referencedColumn(ref)))
}

func (d sqlDialect) foreignKeyConstraint(table string, field *DeclaredField) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) %s",
		d.quote(foreignKeyName(table, field.Name)), d.quote(field.Name), d.references(field.References))
}

// createTable builds CREATE TABLE from the declared fields. A single primary key is declared
// on the column, a composite one as a table constraint. Foreign keys are inline references
// unless tableLevelForeignKeys is set.
func (d sqlDialect) createTable(name string, table *DeclaredTable, tableLevelForeignKeys bool, deferred func(string) bool) string {
	primaryKey := table.PrimaryKey()
	var definitions []string
	var constraints []string
	for _, field := range table.Fields {
		definition := d.columnDefinition(field, field.Nullable)
		if field.PrimaryKey && len(primaryKey) == 1 {
			definition += " PRIMARY KEY"
		}
		if field.IsForeignKey() && !deferred(field.Name) {
			if tableLevelForeignKeys {
				constraints = append(constraints, d.foreignKeyConstraint(table.Name, field))
			} else {
				definition += " " + d.references(field.References)
			}
		}
		definitions = append(definitions, definition)
	}
	if len(primaryKey) > 1 {
		definitions = append(definitions, fmt.Sprintf("PRIMARY KEY (%s)", d.quoteAll(primaryKey)))
	}
	definitions = append(definitions, constraints...)
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.quote(name), strings.Join(definitions, ", "))
}

func (d sqlDialect) backfill(c *ColumnBackfill) database.Statement {
	return database.Statement{
		SQL:  fmt.Sprintf("UPDATE %s SET %s = %s", d.quote(c.Table.Name), d.quote(c.Field.Name), d.placeholder(1)),
		Args: []any{c.Field.Default},
	}
}

func warningStatement(c *Warning) database.Statement {
	return database.Statement{SQL: fmt.Sprintf("-- %s", c.Message)}
}

func statement(format string, args ...any) []database.Statement {
	return []database.Statement{{SQL: fmt.Sprintf(format, args...)}}
}

func foreignKeyName(table, column string) string {
	return util.BuildConstraintName(table, column, "fkey", util.MaxPortableIdentifierLength)
}

func noDeferral(string) bool { return false }
