package file

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/sqldef/dbevolve/database"
)

// Snapshot is the YAML representation of a catalog, e.g.
//
//	dialect: postgres
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, type: integer, primary_key: true}
//	      - {name: name, type: character varying, nullable: true}
//	    foreign_keys: []
type Snapshot struct {
	Dialect string          `yaml:"dialect"`
	Tables  []SnapshotTable `yaml:"tables"`
}

type SnapshotTable struct {
	Name        string                `yaml:"name"`
	Columns     []database.Column     `yaml:"columns"`
	Indexes     []database.Index      `yaml:"indexes"`
	ForeignKeys []database.ForeignKey `yaml:"foreign_keys"`
}

// Pseudo database reading the current schema from a snapshot file. It cannot run statements.
type FileDatabase struct {
	snapshot Snapshot
}

func NewDatabase(file string) (*FileDatabase, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return NewDatabaseFromYAML(buf)
}

func NewDatabaseFromYAML(buf []byte) (*FileDatabase, error) {
	var snapshot Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(buf), yaml.DisallowUnknownField())
	if err := dec.Decode(&snapshot); err != nil {
		return nil, err
	}
	if snapshot.Dialect == "" {
		return nil, fmt.Errorf("snapshot has no dialect")
	}
	return &FileDatabase{snapshot: snapshot}, nil
}

func (f *FileDatabase) table(name string) (SnapshotTable, error) {
	for _, table := range f.snapshot.Tables {
		if table.Name == name {
			return table, nil
		}
	}
	return SnapshotTable{}, fmt.Errorf("table %q is not in the snapshot", name)
}

func (f *FileDatabase) TableNames() ([]string, error) {
	tables := []string{}
	for _, table := range f.snapshot.Tables {
		tables = append(tables, table.Name)
	}
	return tables, nil
}

func (f *FileDatabase) Columns(name string) ([]database.Column, error) {
	table, err := f.table(name)
	if err != nil {
		return nil, err
	}
	columns := make([]database.Column, len(table.Columns))
	for i, column := range table.Columns {
		column.Table = name
		columns[i] = column
	}
	return columns, nil
}

func (f *FileDatabase) Indexes(name string) ([]database.Index, error) {
	table, err := f.table(name)
	if err != nil {
		return nil, err
	}
	indexes := make([]database.Index, len(table.Indexes))
	for i, index := range table.Indexes {
		index.Table = name
		indexes[i] = index
	}
	return indexes, nil
}

func (f *FileDatabase) ForeignKeys() ([]database.ForeignKey, error) {
	var foreignKeys []database.ForeignKey
	for _, table := range f.snapshot.Tables {
		for _, fk := range table.ForeignKeys {
			fk.Table = table.Name
			foreignKeys = append(foreignKeys, fk)
		}
	}
	return foreignKeys, nil
}

func (f *FileDatabase) Dialect() string {
	return f.snapshot.Dialect
}

func (f *FileDatabase) DB() *sql.DB {
	return nil
}

func (f *FileDatabase) Close() error {
	return nil
}
