package mysql

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	driver "github.com/go-sql-driver/mysql"
	"github.com/sqldef/dbevolve/database"
)

type MysqlDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	if config.SslMode == "custom" {
		if err := registerTLSConfig(os.Getenv("MYSQL_SSL_CA")); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("mysql", mysqlBuildDSN(config))
	if err != nil {
		return nil, err
	}

	return &MysqlDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *MysqlDatabase) TableNames() ([]string, error) {
	rows, err := d.db.Query(`
		select table_name from information_schema.tables
		where table_schema = database() and table_type = 'BASE TABLE'
		order by table_name
	`)
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

func (d *MysqlDatabase) Columns(table string) ([]database.Column, error) {
	rows, err := d.db.Query(`
		select column_name, column_type, is_nullable = 'YES', column_key = 'PRI'
		from information_schema.columns
		where table_schema = database() and table_name = ?
		order by ordinal_position
	`, table)
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

func (d *MysqlDatabase) Indexes(table string) ([]database.Index, error) {
	rows, err := d.db.Query(`
		select index_name, non_unique = 0, column_name
		from information_schema.statistics
		where table_schema = database() and table_name = ?
		order by index_name, seq_in_index
	`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []database.Index
	for rows.Next() {
		var name, column string
		var unique bool
		if err := rows.Scan(&name, &unique, &column); err != nil {
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
			Primary: name == "PRIMARY",
		})
	}
	return indexes, rows.Err()
}

func (d *MysqlDatabase) ForeignKeys() ([]database.ForeignKey, error) {
	rows, err := d.db.Query(`
		select column_name, referenced_table_name, referenced_column_name, table_name, constraint_name
		from information_schema.key_column_usage
		where table_schema = database() and referenced_table_name is not null
		order by table_name, constraint_name
	`)
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

func (d *MysqlDatabase) Dialect() string {
	return "mysql"
}

func (d *MysqlDatabase) DB() *sql.DB {
	return d.db
}

func (d *MysqlDatabase) Close() error {
	return d.db.Close()
}

func mysqlBuildDSN(config database.Config) string {
	c := driver.NewConfig()
	c.User = config.User
	c.Passwd = config.Password
	c.DBName = config.DbName
	c.AllowCleartextPasswords = config.MySQLEnableCleartextPlugin
	c.TLSConfig = config.SslMode
	if config.Socket == "" {
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	} else {
		c.Net = "unix"
		c.Addr = config.Socket
	}
	return c.FormatDSN()
}

func registerTLSConfig(pemPath string) error {
	rootCertPool := x509.NewCertPool()
	pem, err := os.ReadFile(pemPath)
	if err != nil {
		return err
	}

	if ok := rootCertPool.AppendCertsFromPEM(pem); !ok {
		return fmt.Errorf("failed to append PEM")
	}

	return driver.RegisterTLSConfig("custom", &tls.Config{
		RootCAs: rootCertPool,
	})
}
