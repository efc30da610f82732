package schema

import (
	"log/slog"
	"slices"

	"github.com/sqldef/dbevolve/database"
)

// DiffTables splits tables into the ones to create, drop and rename. A declared table whose alias
// names an existing undeclared table is a rename of it; the first such alias in declaration order
// wins. The tables to create are ordered so that every table comes after the tables it references
// among those created in the same run.
func DiffTables(existing []string, declared []*DeclaredTable) ([]*DeclaredTable, []string, []*TableRename, error) {
	var added []*DeclaredTable
	for _, table := range declared {
		if !slices.Contains(existing, table.Name) {
			added = append(added, table)
		}
	}
	var deleted []string
	for _, name := range existing {
		if !slices.ContainsFunc(declared, func(t *DeclaredTable) bool { return t.Name == name }) {
			deleted = append(deleted, name)
		}
	}

	var renamed []*TableRename
	var created []*DeclaredTable
	for _, table := range added {
		i := slices.IndexFunc(table.Aliases, func(alias string) bool { return slices.Contains(deleted, alias) })
		if i < 0 {
			created = append(created, table)
			continue
		}
		alias := table.Aliases[i]
		slog.Debug("Detected table rename", "from", alias, "to", table.Name)
		renamed = append(renamed, &TableRename{Old: alias, New: table.Name})
		deleted = slices.DeleteFunc(deleted, func(name string) bool { return name == alias })
	}

	dependencies := make(map[string][]string, len(created))
	for _, table := range created {
		dependencies[table.Name] = table.Dependencies()
	}
	sorted, err := topologicalSort(created, dependencies, func(t *DeclaredTable) string { return t.Name })
	if err != nil {
		return nil, nil, nil, err
	}
	return sorted, deleted, renamed, nil
}

// ColumnDiff is the difference between the existing columns of a table and its declared fields.
type ColumnDiff struct {
	Added   []*DeclaredField
	Deleted []string
	// Renamed maps declared names to the existing names they were renamed from.
	Renamed []*ColumnRename
	Altered []*ColumnAlter
	// ForeignKeyAdd and ForeignKeyDrop in declaration order.
	ForeignKeys []Change
	// Foreign keys of deleted columns, which some dialects refuse to drop implicitly.
	DeletedForeignKeys []*ForeignKeyDrop
}

// DiffColumns compares the existing columns and foreign keys of a table with its declaration.
// A surviving column may only change its nullability and a new column may not be part of the
// primary key; anything else is an *UnsupportedColumnChangeError.
func DiffColumns(table *DeclaredTable, existing []database.Column, foreignKeys []database.ForeignKey) (*ColumnDiff, error) {
	existingByName := make(map[string]database.Column, len(existing))
	for _, column := range existing {
		existingByName[column.Name] = column
	}

	var newColumns []string
	for _, field := range table.Fields {
		if _, ok := existingByName[field.Name]; !ok {
			newColumns = append(newColumns, field.Name)
		}
	}
	var deleteColumns []string
	for _, column := range existing {
		if table.Field(column.Name) == nil {
			deleteColumns = append(deleteColumns, column.Name)
		}
	}

	diff := &ColumnDiff{}
	// declared name -> existing name, for every surviving column
	sources := map[string]string{}
	for _, field := range table.Fields {
		if !slices.Contains(newColumns, field.Name) {
			sources[field.Name] = field.Name
			continue
		}
		for _, alias := range field.Aliases {
			if !slices.Contains(deleteColumns, alias) || !CanConvert(NormalizeType(existingByName[alias].Type), NormalizeType(field.Type)) {
				continue
			}
			slog.Debug("Detected column rename", "table", table.Name, "from", alias, "to", field.Name)
			diff.Renamed = append(diff.Renamed, &ColumnRename{Table: table, Old: alias, New: field.Name})
			sources[field.Name] = alias
			newColumns = slices.DeleteFunc(newColumns, func(name string) bool { return name == field.Name })
			deleteColumns = slices.DeleteFunc(deleteColumns, func(name string) bool { return name == alias })
			break
		}
	}

	for _, field := range table.Fields {
		if !slices.Contains(newColumns, field.Name) {
			continue
		}
		// Columns are added as plain nullable columns. Primary keys of existing tables are
		// never altered, so a new primary key column could not reach its declaration.
		if field.PrimaryKey {
			added := field.Column(table.Name)
			added.Nullable = true
			added.PrimaryKey = false
			return nil, &UnsupportedColumnChangeError{Existing: added, Declared: field.Column(table.Name)}
		}
		diff.Added = append(diff.Added, field)
	}
	diff.Deleted = deleteColumns
	for _, name := range deleteColumns {
		if fk := findForeignKey(foreignKeys, name); fk != nil {
			diff.DeletedForeignKeys = append(diff.DeletedForeignKeys, &ForeignKeyDrop{Table: table, Column: name, Constraint: fk.Name})
		}
	}

	for _, field := range table.Fields {
		source, ok := sources[field.Name]
		if !ok {
			continue
		}
		current := existingByName[source]
		existingColumn := ColumnMetadata{
			Name:       current.Name,
			Type:       NormalizeType(current.Type),
			Nullable:   current.Nullable,
			PrimaryKey: current.PrimaryKey,
			Table:      table.Name,
		}
		declaredColumn := field.Column(table.Name)

		if !existingColumn.Equivalent(declaredColumn) {
			if existingColumn.Type != declaredColumn.Type || existingColumn.PrimaryKey != declaredColumn.PrimaryKey {
				return nil, &UnsupportedColumnChangeError{Existing: existingColumn, Declared: declaredColumn}
			}
			kind := DropNotNull
			if existingColumn.Nullable {
				kind = AddNotNull
			}
			diff.Altered = append(diff.Altered, &ColumnAlter{Table: table, Field: field, Kind: kind})
		}

		// Constraints stay attached to the column they were created on, so look them up by
		// the name the column had before a rename.
		fk := findForeignKey(foreignKeys, source)
		switch {
		case field.IsForeignKey() && fk == nil:
			diff.ForeignKeys = append(diff.ForeignKeys, &ForeignKeyAdd{Table: table, Field: field})
		case !field.IsForeignKey() && fk != nil:
			diff.ForeignKeys = append(diff.ForeignKeys, &ForeignKeyDrop{Table: table, Column: field.Name, Constraint: fk.Name})
		}
	}
	return diff, nil
}

// Empty reports whether the table needs no change.
func (d *ColumnDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Deleted) == 0 && len(d.Renamed) == 0 && len(d.Altered) == 0 && len(d.ForeignKeys) == 0
}

func findForeignKey(foreignKeys []database.ForeignKey, column string) *database.ForeignKey {
	i := slices.IndexFunc(foreignKeys, func(fk database.ForeignKey) bool { return fk.Column == column })
	if i < 0 {
		return nil
	}
	return &foreignKeys[i]
}
