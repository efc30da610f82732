package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sqldef/dbevolve/database"
)

const defaultSchema = "public"

type PostgresDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("postgres", postgresBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &PostgresDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *PostgresDatabase) schema() string {
	if d.config.TargetSchema != "" {
		return d.config.TargetSchema
	}
	return defaultSchema
}

func (d *PostgresDatabase) TableNames() ([]string, error) {
	rows, err := d.db.Query(`
		select table_name from information_schema.tables
		where table_schema = $1 and table_type = 'BASE TABLE'
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

func (d *PostgresDatabase) Columns(table string) ([]database.Column, error) {
	rows, err := d.db.Query(`
		select c.column_name, c.data_type, c.is_nullable = 'YES',
		  exists (
		    select 1 from information_schema.table_constraints tc
		    join information_schema.key_column_usage kcu
		      on tc.constraint_name = kcu.constraint_name and tc.constraint_schema = kcu.constraint_schema
		    where tc.constraint_type = 'PRIMARY KEY'
		      and tc.table_schema = c.table_schema and tc.table_name = c.table_name
		      and kcu.column_name = c.column_name
		  )
		from information_schema.columns c
		where c.table_schema = $1 and c.table_name = $2
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

func (d *PostgresDatabase) Indexes(table string) ([]database.Index, error) {
	rows, err := d.db.Query(`
		select i.relname, ix.indisunique, ix.indisprimary, a.attname
		from pg_catalog.pg_index ix
		join pg_catalog.pg_class t on t.oid = ix.indrelid
		join pg_catalog.pg_class i on i.oid = ix.indexrelid
		join pg_catalog.pg_namespace n on n.oid = t.relnamespace
		join pg_catalog.pg_attribute a on a.attrelid = t.oid and a.attnum = any(ix.indkey)
		where n.nspname = $1 and t.relname = $2
		order by i.relname, array_position(ix.indkey, a.attnum)
	`, d.schema(), table)
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

func (d *PostgresDatabase) ForeignKeys() ([]database.ForeignKey, error) {
	rows, err := d.db.Query(`
		select kcu.column_name, ccu.table_name, ccu.column_name, tc.table_name, tc.constraint_name
		from information_schema.table_constraints as tc
		join information_schema.key_column_usage as kcu
		  on (tc.constraint_name = kcu.constraint_name and tc.constraint_schema = kcu.constraint_schema)
		join information_schema.constraint_column_usage as ccu
		  on (ccu.constraint_name = tc.constraint_name and ccu.constraint_schema = tc.constraint_schema)
		where tc.constraint_type = 'FOREIGN KEY' and tc.table_schema = $1
		order by tc.table_name, tc.constraint_name
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
	slog.Debug("Introspected foreign keys", "count", len(foreignKeys))
	return foreignKeys, rows.Err()
}

func (d *PostgresDatabase) Dialect() string {
	return "postgres"
}

func (d *PostgresDatabase) DB() *sql.DB {
	return d.db
}

func (d *PostgresDatabase) Close() error {
	return d.db.Close()
}

func postgresBuildDSN(config database.Config) string {
	host := ""
	var options []string

	if config.Socket == "" {
		host = fmt.Sprintf("%s:%d", config.Host, config.Port)
	} else {
		// postgres://user:@%2Fvar%2Frun%2Fpostgresql/dbname is rejected by the URL parser,
		// so the socket directory goes to the host option instead.
		options = append(options, fmt.Sprintf("host=%s", config.Socket))
	}

	if config.SslMode != "" {
		options = append(options, fmt.Sprintf("sslmode=%s", config.SslMode))
	} else if sslmode, ok := os.LookupEnv("PGSSLMODE"); ok {
		options = append(options, fmt.Sprintf("sslmode=%s", sslmode))
	}

	// `QueryEscape` instead of `PathEscape` so that colon can be escaped.
	return fmt.Sprintf("postgres://%s:%s@%s/%s?%s",
		url.QueryEscape(config.User), url.QueryEscape(config.Password), host, config.DbName, strings.Join(options, "&"))
}
