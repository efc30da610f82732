package schema

import (
	"fmt"
	"strings"
)

type UnsupportedDialectError struct {
	Dialect string
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("could not find a migrator for dialect %q, please provide one", e.Dialect)
}

// UnsupportedColumnChangeError is returned when a column differs in a way no known alter can fix.
type UnsupportedColumnChangeError struct {
	Existing ColumnMetadata
	Declared ColumnMetadata
}

func (e *UnsupportedColumnChangeError) Error() string {
	return fmt.Sprintf("don't know how to change %s into %s", e.Existing, e.Declared)
}

type CyclicDependencyError struct {
	Tables []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("circular foreign key dependency among tables: %s", strings.Join(e.Tables, ", "))
}

// UnknownReferenceError is returned when a foreign key field points at a table or column that is
// not declared.
type UnknownReferenceError struct {
	Table     string
	Column    string
	Reference Reference
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("foreign key %s.%s references %s.%s, which is not declared", e.Table, e.Column, e.Reference.Table, referencedColumn(&e.Reference))
}
