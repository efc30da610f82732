// This package has database layer. Never deal with DDL construction.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string

	// Only PostgreSQL and SQL Server
	TargetSchema string
	SslMode      string

	// Only MySQL
	MySQLEnableCleartextPlugin bool
}

// Abstraction layer for multiple kinds of databases
type Database interface {
	TableNames() ([]string, error)
	Columns(table string) ([]Column, error)
	Indexes(table string) ([]Index, error)
	ForeignKeys() ([]ForeignKey, error)
	Dialect() string
	DB() *sql.DB
	Close() error
}

// Column is one column as reported by the catalog. Type is the raw type string;
// the schema package normalizes it before comparison.
type Column struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Nullable   bool   `yaml:"nullable"`
	PrimaryKey bool   `yaml:"primary_key"`
	Table      string `yaml:"-"`
}

// Index metadata is introspected but not diffed.
type Index struct {
	Name    string   `yaml:"name"`
	Table   string   `yaml:"-"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
	Primary bool     `yaml:"primary"`
}

type ForeignKey struct {
	Column     string `yaml:"column"`
	DestTable  string `yaml:"dest_table"`
	DestColumn string `yaml:"dest_column"`
	Table      string `yaml:"table"`
	Name       string `yaml:"name"`
}

// Catalog is a snapshot of the live schema taken for a single diff run.
type Catalog struct {
	Tables             []string
	Columns            map[string][]Column
	Indexes            map[string][]Index
	ForeignKeysByTable map[string][]ForeignKey
}

// A parameterized statement of a migration plan.
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string {
	if len(s.Args) == 0 {
		return s.SQL
	}
	return fmt.Sprintf("%s %v", s.SQL, s.Args)
}

// ExecutionError is returned by RunStatements after the transaction was rolled back.
type ExecutionError struct {
	Statement Statement
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute '%s': %s", e.Statement, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Introspect reads tables, columns, indexes and foreign keys of the managed tables.
// Catalog errors are returned as they are.
func Introspect(ctx context.Context, d Database, config GeneratorConfig) (*Catalog, error) {
	tableNames, err := d.TableNames()
	if err != nil {
		return nil, err
	}
	tableNames = FilterTables(tableNames, config)
	slog.Debug("Introspected tables", "dialect", d.Dialect(), "tables", tableNames)

	type tableMetadata struct {
		columns []Column
		indexes []Index
	}
	metadata, err := ConcurrentMapFuncWithError(tableNames, config.DumpConcurrency, func(table string) (tableMetadata, error) {
		if err := ctx.Err(); err != nil {
			return tableMetadata{}, err
		}
		columns, err := d.Columns(table)
		if err != nil {
			return tableMetadata{}, err
		}
		indexes, err := d.Indexes(table)
		if err != nil {
			return tableMetadata{}, err
		}
		return tableMetadata{columns: columns, indexes: indexes}, nil
	})
	if err != nil {
		return nil, err
	}

	foreignKeys, err := d.ForeignKeys()
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{
		Tables:             tableNames,
		Columns:            make(map[string][]Column, len(tableNames)),
		Indexes:            make(map[string][]Index, len(tableNames)),
		ForeignKeysByTable: make(map[string][]ForeignKey, len(tableNames)),
	}
	for i, table := range tableNames {
		catalog.Columns[table] = metadata[i].columns
		catalog.Indexes[table] = metadata[i].indexes
		catalog.ForeignKeysByTable[table] = []ForeignKey{}
	}
	for _, fk := range foreignKeys {
		if _, ok := catalog.ForeignKeysByTable[fk.Table]; !ok {
			continue
		}
		catalog.ForeignKeysByTable[fk.Table] = append(catalog.ForeignKeysByTable[fk.Table], fk)
	}
	return catalog, nil
}

// HasTable reports whether the catalog contains the table.
func (c *Catalog) HasTable(table string) bool {
	return slices.Contains(c.Tables, table)
}

// RunStatements executes the whole plan in one transaction. Any failure rolls back every
// statement run so far. On a DryRunDatabase the statements are only printed.
func RunStatements(ctx context.Context, d Database, statements []Statement, logger Logger) error {
	transaction, err := d.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, ok := d.(*DryRunDatabase); ok {
		logger.Println("-- dry run --")
	} else {
		logger.Println("-- Apply --")
	}
	for _, stmt := range statements {
		logger.Printf("%s;\n", stmt)
		if isSingleLineComment(stmt.SQL) {
			continue
		}
		if _, err := transaction.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
			if rollbackErr := transaction.Rollback(); rollbackErr != nil {
				slog.Error("Failed to roll back", "error", rollbackErr)
			}
			return &ExecutionError{Statement: stmt, Err: err}
		}
	}
	return transaction.Commit()
}

func isSingleLineComment(sql string) bool {
	sql = strings.TrimRight(sql, " \n")
	return strings.HasPrefix(sql, "--") && !strings.Contains(sql, "\n")
}
