package schema

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/sqldef/dbevolve/database"
)

const notNullWithoutDefaultWarning = "adding a not null column without a default will fail if the table is not empty"

// GenerateChanges computes the plan turning the catalog into the declared schema of the registry.
// Only tables managed under config are considered on either side.
//
// The plan creates tables first in dependency order, then renames tables, then changes the
// columns of every surviving table, and drops tables last. An empty plan means the database is
// up to date.
func GenerateChanges(catalog *database.Catalog, registry *Registry, config database.GeneratorConfig) ([]Change, error) {
	var declared []*DeclaredTable
	for _, table := range registry.Tables() {
		if database.IsManagedTable(table.Name, config) {
			declared = append(declared, table)
		}
	}
	existing := database.FilterTables(catalog.Tables, config)
	if err := checkReferences(declared, registry, config); err != nil {
		return nil, err
	}

	added, deleted, renamed, err := DiffTables(existing, declared)
	if err != nil {
		return nil, err
	}

	var changes []Change

	// A created table may reference a table that only gets its declared name from a rename
	// later in the plan. Such references are added once the rename happened.
	renameTargets := map[string]bool{}
	for _, rename := range renamed {
		renameTargets[rename.New] = true
	}
	var deferred []Change
	for _, table := range added {
		change := &TableAdd{Table: table}
		for _, field := range table.Fields {
			if field.IsForeignKey() && renameTargets[field.References.Table] {
				change.DeferredReferences = append(change.DeferredReferences, field.Name)
				deferred = append(deferred, &ForeignKeyAdd{Table: table, Field: field})
			}
		}
		changes = append(changes, change)
	}
	for _, rename := range renamed {
		changes = append(changes, rename)
	}
	changes = append(changes, deferred...)

	// existing name of every surviving table
	sources := map[string]string{}
	for _, table := range declared {
		if slices.Contains(existing, table.Name) {
			sources[table.Name] = table.Name
		}
	}
	for _, rename := range renamed {
		sources[rename.New] = rename.Old
	}
	surviving := slices.DeleteFunc(slices.Clone(declared), func(t *DeclaredTable) bool {
		_, ok := sources[t.Name]
		return !ok
	})
	slices.SortStableFunc(surviving, func(a, b *DeclaredTable) int { return strings.Compare(a.Name, b.Name) })

	for _, table := range surviving {
		source := sources[table.Name]
		diff, err := DiffColumns(table, catalog.Columns[source], catalog.ForeignKeysByTable[source])
		if err != nil {
			return nil, err
		}
		changes = append(changes, columnChanges(table, diff)...)
	}

	for _, name := range dropOrder(deleted, catalog) {
		changes = append(changes, &TableDelete{Name: name})
	}
	return changes, nil
}

// checkReferences makes sure every foreign key points at a declared column. Tables outside of
// config are not managed here, so references to them are trusted.
func checkReferences(declared []*DeclaredTable, registry *Registry, config database.GeneratorConfig) error {
	for _, table := range declared {
		for _, field := range table.Fields {
			if !field.IsForeignKey() || !database.IsManagedTable(field.References.Table, config) {
				continue
			}
			target, ok := registry.Table(field.References.Table)
			if ok && target.Field(referencedColumn(field.References)) != nil {
				continue
			}
			return &UnknownReferenceError{Table: table.Name, Column: field.Name, Reference: *field.References}
		}
	}
	return nil
}

func columnChanges(table *DeclaredTable, diff *ColumnDiff) []Change {
	var changes []Change
	for _, field := range diff.Added {
		changes = append(changes, &ColumnAdd{Table: table, Field: field})
		if field.Nullable {
			continue
		}
		if field.Default != nil {
			changes = append(changes, &ColumnBackfill{Table: table, Field: field})
		} else {
			changes = append(changes, &Warning{Table: table.Name, Message: notNullWithoutDefaultWarning})
		}
		changes = append(changes, &ColumnAlter{Table: table, Field: field, Kind: AddNotNull})
	}
	for _, fk := range diff.DeletedForeignKeys {
		changes = append(changes, fk)
	}
	for _, name := range diff.Deleted {
		changes = append(changes, &ColumnDelete{Table: table, Column: name})
	}
	for _, rename := range diff.Renamed {
		changes = append(changes, rename)
	}
	for _, alter := range diff.Altered {
		changes = append(changes, alter)
	}
	return append(changes, diff.ForeignKeys...)
}

// dropOrder returns deleted tables so that a table is dropped before the tables it references.
func dropOrder(deleted []string, catalog *database.Catalog) []string {
	names := slices.Clone(deleted)
	slices.Sort(names)

	dependencies := make(map[string][]string, len(names))
	for _, name := range names {
		for _, fk := range catalog.ForeignKeysByTable[name] {
			dependencies[name] = append(dependencies[name], fk.DestTable)
		}
	}
	sorted, err := topologicalSort(names, dependencies, func(name string) string { return name })
	if err != nil {
		slog.Warn("Dropping tables in name order", "error", err)
		return names
	}
	slices.Reverse(sorted)
	return sorted
}
