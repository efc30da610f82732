package mssql

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/sqldef/dbevolve/database"
)

const defaultSchema = "dbo"

type MssqlDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("sqlserver", mssqlBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &MssqlDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *MssqlDatabase) schema() string {
	if d.config.TargetSchema != "" {
		return d.config.TargetSchema
	}
	return defaultSchema
}

func (d *MssqlDatabase) TableNames() ([]string, error) {
	rows, err := d.db.Query(`
		select table_name from information_schema.tables
		where table_schema = @p1 and table_type = 'BASE TABLE'
		order by table_name
	`, d.schema())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

func (d *MssqlDatabase) Columns(table string) ([]database.Column, error) {
	rows, err := d.db.Query(`
		select c.column_name, c.data_type,
		  case when c.is_nullable = 'YES' then 1 else 0 end,
		  case when exists (
		    select 1 from information_schema.table_constraints tc
		    join information_schema.key_column_usage kcu
		      on tc.constraint_name = kcu.constraint_name and tc.constraint_schema = kcu.constraint_schema
		    where tc.constraint_type = 'PRIMARY KEY'
		      and tc.table_schema = c.table_schema and tc.table_name = c.table_name
		      and kcu.column_name = c.column_name
		  ) then 1 else 0 end
		from information_schema.columns c
		where c.table_schema = @p1 and c.table_name = @p2
		order by c.ordinal_position
	`, d.schema(), table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		column := database.Column{Table: table}
		if err := rows.Scan(&column.Name, &column.Type, &column.Nullable, &column.PrimaryKey); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func (d *MssqlDatabase) Indexes(table string) ([]database.Index, error) {
	rows, err := d.db.Query(`
		select ind.name, ind.is_unique, ind.is_primary_key, col.name
		from sys.indexes ind
		join sys.index_columns ic on ind.object_id = ic.object_id and ind.index_id = ic.index_id
		join sys.columns col on ic.object_id = col.object_id and ic.column_id = col.column_id
		where ind.object_id = object_id(@p1)
		order by ind.name, ic.key_ordinal
	`, fmt.Sprintf("%s.%s", d.schema(), table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []database.Index
	for rows.Next() {
		var name, column string
		var unique, primary bool
		if err := rows.Scan(&name, &unique, &primary, &column); err != nil {
			return nil, err
		}
		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, column)
			continue
		}
		indexes = append(indexes, database.Index{
			Name:    name,
			Table:   table,
			Columns: []string{column},
			Unique:  unique,
			Primary: primary,
		})
	}
	return indexes, rows.Err()
}

func (d *MssqlDatabase) ForeignKeys() ([]database.ForeignKey, error) {
	rows, err := d.db.Query(`
		select col_name(fc.parent_object_id, fc.parent_column_id),
		  object_name(f.referenced_object_id),
		  col_name(fc.referenced_object_id, fc.referenced_column_id),
		  object_name(f.parent_object_id),
		  f.name
		from sys.foreign_keys f
		join sys.foreign_key_columns fc on f.object_id = fc.constraint_object_id
		where schema_name(f.schema_id) = @p1
		order by object_name(f.parent_object_id), f.name
	`, d.schema())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var foreignKeys []database.ForeignKey
	for rows.Next() {
		var fk database.ForeignKey
		if err := rows.Scan(&fk.Column, &fk.DestTable, &fk.DestColumn, &fk.Table, &fk.Name); err != nil {
			return nil, err
		}
		foreignKeys = append(foreignKeys, fk)
	}
	return foreignKeys, rows.Err()
}

func (d *MssqlDatabase) Dialect() string {
	return "mssql"
}

func (d *MssqlDatabase) DB() *sql.DB {
	return d.db
}

func (d *MssqlDatabase) Close() error {
	return d.db.Close()
}

func mssqlBuildDSN(config database.Config) string {
	query := url.Values{}
	query.Add("database", config.DbName)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
