package schema

import (
	"fmt"
	"slices"
)

// ColumnMetadata is a column either observed in the catalog or declared, with its type
// already normalized.
type ColumnMetadata struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Table      string
}

// Equivalent reports whether two columns need no alter between them.
func (c ColumnMetadata) Equivalent(other ColumnMetadata) bool {
	return c.Nullable == other.Nullable && c.Type == other.Type && c.PrimaryKey == other.PrimaryKey
}

func (c ColumnMetadata) String() string {
	return fmt.Sprintf("%s.%s(type=%s, nullable=%t, primary_key=%t)", c.Table, c.Name, c.Type, c.Nullable, c.PrimaryKey)
}

// Reference is the target of a foreign key field.
type Reference struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// DeclaredField is a column of the desired schema.
type DeclaredField struct {
	Name       string
	Type       string // as written in DDL, e.g. varchar(255)
	Nullable   bool
	PrimaryKey bool
	References *Reference
	// Previous names of the column. Only used to detect renames.
	Aliases []string
	// Value back-filled when the column is added as NOT NULL. nil means no default.
	Default any
}

// Column returns the canonical metadata of the field as a column of table.
func (f *DeclaredField) Column(table string) ColumnMetadata {
	return ColumnMetadata{
		Name:       f.Name,
		Type:       NormalizeType(f.Type),
		Nullable:   f.Nullable,
		PrimaryKey: f.PrimaryKey,
		Table:      table,
	}
}

func (f *DeclaredField) IsForeignKey() bool {
	return f.References != nil
}

// DeclaredTable is a table of the desired schema. Fields keep their declaration order,
// which is the column order of CREATE TABLE.
type DeclaredTable struct {
	Name    string
	Fields  []*DeclaredField
	Aliases []string
}

func (t *DeclaredTable) Field(name string) *DeclaredField {
	i := slices.IndexFunc(t.Fields, func(f *DeclaredField) bool { return f.Name == name })
	if i < 0 {
		return nil
	}
	return t.Fields[i]
}

func (t *DeclaredTable) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

func (t *DeclaredTable) PrimaryKey() []string {
	var names []string
	for _, f := range t.Fields {
		if f.PrimaryKey {
			names = append(names, f.Name)
		}
	}
	return names
}

// Dependencies returns the other tables this table has foreign keys into.
func (t *DeclaredTable) Dependencies() []string {
	var deps []string
	for _, f := range t.Fields {
		if f.References == nil || f.References.Table == t.Name || slices.Contains(deps, f.References.Table) {
			continue
		}
		deps = append(deps, f.References.Table)
	}
	return deps
}

func (t *DeclaredTable) validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("table %q has no fields", t.Name)
	}
	seen := map[string]bool{}
	for _, f := range t.Fields {
		if f.Name == "" {
			return fmt.Errorf("table %q has a field without a name", t.Name)
		}
		if f.Type == "" {
			return fmt.Errorf("field %s.%s has no type", t.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %s.%s is declared twice", t.Name, f.Name)
		}
		if f.PrimaryKey && f.Nullable {
			return fmt.Errorf("primary key field %s.%s cannot be nullable", t.Name, f.Name)
		}
		if f.References != nil && f.References.Table == "" {
			return fmt.Errorf("foreign key field %s.%s references no table", t.Name, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}
