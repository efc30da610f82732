package sqlite3

import (
	"database/sql"
	"fmt"

	"github.com/sqldef/dbevolve/database"
	_ "modernc.org/sqlite"
)

type Sqlite3Database struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("sqlite", config.DbName)
	if err != nil {
		return nil, err
	}
	// Every connection of an in-memory database is a different database.
	db.SetMaxOpenConns(1)

	return &Sqlite3Database{
		db:     db,
		config: config,
	}, nil
}

func (d *Sqlite3Database) TableNames() ([]string, error) {
	rows, err := d.db.Query(
		`select tbl_name from sqlite_master where type = 'table' and tbl_name not like 'sqlite_%' order by tbl_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (d *Sqlite3Database) Columns(table string) ([]database.Column, error) {
	rows, err := d.db.Query(`select name, type, "notnull", pk from pragma_table_info(?) order by cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		var name, typeName string
		var notNull, pk int
		if err := rows.Scan(&name, &typeName, &notNull, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, database.Column{
			Name: name,
			Type: typeName,
			// SQLite reports notnull = 0 for an INTEGER PRIMARY KEY, which can never hold NULL.
			Nullable:   notNull == 0 && pk == 0,
			PrimaryKey: pk > 0,
			Table:      table,
		})
	}
	return columns, rows.Err()
}

func (d *Sqlite3Database) Indexes(table string) ([]database.Index, error) {
	rows, err := d.db.Query(`select name, "unique", origin from pragma_index_list(?) order by name`, table)
	if err != nil {
		return nil, err
	}
	var indexes []database.Index
	for rows.Next() {
		var index database.Index
		var unique int
		var origin string
		if err := rows.Scan(&index.Name, &unique, &origin); err != nil {
			rows.Close()
			return nil, err
		}
		index.Table = table
		index.Unique = unique == 1
		index.Primary = origin == "pk"
		indexes = append(indexes, index)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The connection pool holds a single connection, so index_list has to be drained first.
	for i := range indexes {
		columns, err := d.indexColumns(indexes[i].Name)
		if err != nil {
			return nil, err
		}
		indexes[i].Columns = columns
	}
	return indexes, nil
}

func (d *Sqlite3Database) indexColumns(index string) ([]string, error) {
	rows, err := d.db.Query(`select name from pragma_index_info(?) order by seqno`, index)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name.String)
	}
	return columns, rows.Err()
}

// ForeignKeys lists foreign keys of every table. SQLite does not name foreign key
// constraints in its catalog, so a <table>_<column>_fkey name is synthesized.
func (d *Sqlite3Database) ForeignKeys() ([]database.ForeignKey, error) {
	tables, err := d.TableNames()
	if err != nil {
		return nil, err
	}

	var foreignKeys []database.ForeignKey
	for _, table := range tables {
		fks, err := d.tableForeignKeys(table)
		if err != nil {
			return nil, err
		}
		foreignKeys = append(foreignKeys, fks...)
	}
	return foreignKeys, nil
}

func (d *Sqlite3Database) tableForeignKeys(table string) ([]database.ForeignKey, error) {
	rows, err := d.db.Query(`select "from", "table", "to" from pragma_foreign_key_list(?) order by id, seq`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var foreignKeys []database.ForeignKey
	for rows.Next() {
		var from, destTable string
		var to sql.NullString
		if err := rows.Scan(&from, &destTable, &to); err != nil {
			return nil, err
		}
		foreignKeys = append(foreignKeys, database.ForeignKey{
			Column:     from,
			DestTable:  destTable,
			DestColumn: to.String,
			Table:      table,
			Name:       fmt.Sprintf("%s_%s_fkey", table, from),
		})
	}
	return foreignKeys, rows.Err()
}

func (d *Sqlite3Database) Dialect() string {
	return "sqlite3"
}

func (d *Sqlite3Database) DB() *sql.DB {
	return d.db
}

func (d *Sqlite3Database) Close() error {
	return d.db.Close()
}
