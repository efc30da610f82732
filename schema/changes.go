package schema

import (
	"fmt"
	"strings"
)

// Change is one schema delta. Migrators turn changes into statements.
type Change interface {
	// TableName is the name of the table the change applies to, after any rename.
	TableName() string
	String() string
}

type TableAdd struct {
	Table *DeclaredTable
	// Columns whose foreign keys point at a table that is only renamed later in the plan.
	// They are created without the constraint and get a ForeignKeyAdd after the rename.
	DeferredReferences []string
}

func (c *TableAdd) TableName() string { return c.Table.Name }
func (c *TableAdd) String() string {
	return fmt.Sprintf("add table %s(%s)", c.Table.Name, strings.Join(c.Table.FieldNames(), ", "))
}

// Defers reports whether the foreign key of the column is left to a later ForeignKeyAdd.
func (c *TableAdd) Defers(column string) bool {
	for _, name := range c.DeferredReferences {
		if name == column {
			return true
		}
	}
	return false
}

type TableDelete struct {
	Name string
}

func (c *TableDelete) TableName() string { return c.Name }
func (c *TableDelete) String() string    { return fmt.Sprintf("drop table %s", c.Name) }

type TableRename struct {
	Old string
	New string
}

func (c *TableRename) TableName() string { return c.New }
func (c *TableRename) String() string    { return fmt.Sprintf("rename table %s to %s", c.Old, c.New) }

// ColumnAdd always adds the column as nullable. NOT NULL is applied by a following ColumnAlter.
type ColumnAdd struct {
	Table *DeclaredTable
	Field *DeclaredField
}

func (c *ColumnAdd) TableName() string { return c.Table.Name }
func (c *ColumnAdd) String() string {
	return fmt.Sprintf("add column %s.%s", c.Table.Name, c.Field.Name)
}

// ColumnBackfill sets every row of a freshly added column to its default.
type ColumnBackfill struct {
	Table *DeclaredTable
	Field *DeclaredField
}

func (c *ColumnBackfill) TableName() string { return c.Table.Name }
func (c *ColumnBackfill) String() string {
	return fmt.Sprintf("set %s.%s = %v", c.Table.Name, c.Field.Name, c.Field.Default)
}

// Warning is emitted into the plan as an inert comment.
type Warning struct {
	Table   string
	Message string
}

func (c *Warning) TableName() string { return c.Table }
func (c *Warning) String() string    { return "warning: " + c.Message }

type ColumnDelete struct {
	Table  *DeclaredTable
	Column string
}

func (c *ColumnDelete) TableName() string { return c.Table.Name }
func (c *ColumnDelete) String() string {
	return fmt.Sprintf("drop column %s.%s", c.Table.Name, c.Column)
}

type ColumnRename struct {
	Table *DeclaredTable
	Old   string
	New   string
}

func (c *ColumnRename) TableName() string { return c.Table.Name }
func (c *ColumnRename) String() string {
	return fmt.Sprintf("rename column %s.%s to %s", c.Table.Name, c.Old, c.New)
}

type AlterKind int

const (
	AddNotNull AlterKind = iota
	DropNotNull
)

func (k AlterKind) String() string {
	switch k {
	case AddNotNull:
		return "add not null"
	case DropNotNull:
		return "drop not null"
	default:
		return fmt.Sprintf("AlterKind(%d)", int(k))
	}
}

type ColumnAlter struct {
	Table *DeclaredTable
	Field *DeclaredField
	Kind  AlterKind
}

func (c *ColumnAlter) TableName() string { return c.Table.Name }
func (c *ColumnAlter) String() string {
	return fmt.Sprintf("%s on %s.%s", c.Kind, c.Table.Name, c.Field.Name)
}

type ForeignKeyAdd struct {
	Table *DeclaredTable
	Field *DeclaredField
}

func (c *ForeignKeyAdd) TableName() string { return c.Table.Name }
func (c *ForeignKeyAdd) String() string {
	return fmt.Sprintf("add foreign key %s.%s -> %s.%s", c.Table.Name, c.Field.Name, c.Field.References.Table, referencedColumn(c.Field.References))
}

type ForeignKeyDrop struct {
	Table      *DeclaredTable
	Column     string
	Constraint string
}

func (c *ForeignKeyDrop) TableName() string { return c.Table.Name }
func (c *ForeignKeyDrop) String() string {
	return fmt.Sprintf("drop foreign key %s on %s.%s", c.Constraint, c.Table.Name, c.Column)
}

func referencedColumn(ref *Reference) string {
	if ref.Column == "" {
		return "id"
	}
	return ref.Column
}
