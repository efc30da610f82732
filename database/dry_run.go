package database

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

// DryRunDatabase introspects the wrapped database but executes statements against a driver
// that accepts everything and changes nothing.
type DryRunDatabase struct {
	wrapped  Database
	dryRunDB *sql.DB
}

const dryRunDriverName = "dbevolve-dry-run"

var registerDryRunDriver sync.Once

func NewDryRunDatabase(db Database) (*DryRunDatabase, error) {
	registerDryRunDriver.Do(func() {
		sql.Register(dryRunDriverName, &dryRunDriver{})
	})

	dryRunDB, err := sql.Open(dryRunDriverName, "dry-run")
	if err != nil {
		return nil, err
	}

	return &DryRunDatabase{
		wrapped:  db,
		dryRunDB: dryRunDB,
	}, nil
}

func (d *DryRunDatabase) TableNames() ([]string, error) {
	return d.wrapped.TableNames()
}

func (d *DryRunDatabase) Columns(table string) ([]Column, error) {
	return d.wrapped.Columns(table)
}

func (d *DryRunDatabase) Indexes(table string) ([]Index, error) {
	return d.wrapped.Indexes(table)
}

func (d *DryRunDatabase) ForeignKeys() ([]ForeignKey, error) {
	return d.wrapped.ForeignKeys()
}

func (d *DryRunDatabase) Dialect() string {
	return d.wrapped.Dialect()
}

func (d *DryRunDatabase) DB() *sql.DB {
	return d.dryRunDB
}

func (d *DryRunDatabase) Close() error {
	if err := d.dryRunDB.Close(); err != nil {
		return err
	}
	return d.wrapped.Close()
}

type dryRunDriver struct{}

func (d *dryRunDriver) Open(name string) (driver.Conn, error) {
	return &dryRunConn{}, nil
}

type dryRunConn struct{}

func (c *dryRunConn) Prepare(query string) (driver.Stmt, error) {
	return &dryRunStmt{query: query}, nil
}

func (c *dryRunConn) Close() error {
	return nil
}

func (c *dryRunConn) Begin() (driver.Tx, error) {
	return &dryRunTx{}, nil
}

type dryRunTx struct{}

func (tx *dryRunTx) Commit() error {
	return nil
}

func (tx *dryRunTx) Rollback() error {
	return nil
}

type dryRunStmt struct {
	query string
}

func (s *dryRunStmt) Close() error {
	return nil
}

func (s *dryRunStmt) NumInput() int {
	return -1
}

func (s *dryRunStmt) Exec(args []driver.Value) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}

func (s *dryRunStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &dryRunRows{}, nil
}

type dryRunRows struct{}

func (r *dryRunRows) Columns() []string {
	return []string{}
}

func (r *dryRunRows) Close() error {
	return nil
}

func (r *dryRunRows) Next(dest []driver.Value) error {
	return io.EOF
}
