package schema

import (
	"fmt"
	"sync"

	"github.com/sqldef/dbevolve/database"
)

// Migrator turns changes into the statements of one dialect.
type Migrator interface {
	Supports(dialect string) bool
	Generate(change Change) ([]database.Statement, error)
}

// TableRebuilder is implemented by migrators of dialects that cannot alter some column
// properties in place. Changes it needs a rebuild for are collapsed into a single rebuild per
// table, run after the other changes of that table.
type TableRebuilder interface {
	NeedsRebuild(change Change) bool
	RebuildTable(table *DeclaredTable) ([]database.Statement, error)
}

var (
	migratorsMutex sync.RWMutex
	migrators      []Migrator
)

// RegisterMigrator makes a migrator available to MigratorForDialect. Dialect packages call it
// from init.
func RegisterMigrator(m Migrator) {
	migratorsMutex.Lock()
	defer migratorsMutex.Unlock()
	migrators = append(migrators, m)
}

// MigratorForDialect returns the first registered migrator supporting the dialect.
func MigratorForDialect(dialect string) (Migrator, error) {
	migratorsMutex.RLock()
	defer migratorsMutex.RUnlock()
	for _, m := range migrators {
		if m.Supports(dialect) {
			return m, nil
		}
	}
	return nil, &UnsupportedDialectError{Dialect: dialect}
}

// GenerateStatements concatenates the statements of every change in order.
func GenerateStatements(m Migrator, changes []Change) ([]database.Statement, error) {
	rebuilder, _ := m.(TableRebuilder)

	var statements []database.Statement
	var pending *DeclaredTable
	flush := func() error {
		if pending == nil {
			return nil
		}
		rebuild, err := rebuilder.RebuildTable(pending)
		if err != nil {
			return err
		}
		statements = append(statements, rebuild...)
		pending = nil
		return nil
	}

	for _, change := range changes {
		if pending != nil && change.TableName() != pending.Name {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		if rebuilder != nil && rebuilder.NeedsRebuild(change) {
			table := declaredTableOf(change)
			if table == nil {
				return nil, fmt.Errorf("cannot rebuild a table for %q", change)
			}
			pending = table
			continue
		}
		generated, err := m.Generate(change)
		if err != nil {
			return nil, err
		}
		statements = append(statements, generated...)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return statements, nil
}

func declaredTableOf(change Change) *DeclaredTable {
	switch c := change.(type) {
	case *TableAdd:
		return c.Table
	case *ColumnAdd:
		return c.Table
	case *ColumnBackfill:
		return c.Table
	case *ColumnDelete:
		return c.Table
	case *ColumnRename:
		return c.Table
	case *ColumnAlter:
		return c.Table
	case *ForeignKeyAdd:
		return c.Table
	case *ForeignKeyDrop:
		return c.Table
	default:
		return nil
	}
}

type unsupportedChangeError struct {
	dialect string
	change  Change
}

func (e *unsupportedChangeError) Error() string {
	return fmt.Sprintf("%s migrator cannot generate %T (%s)", e.dialect, e.change, e.change)
}
