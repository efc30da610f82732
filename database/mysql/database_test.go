//go:build !windows

package mysql

import (
	"strings"
	"testing"

	"github.com/sqldef/dbevolve/database"
	"github.com/sqldef/dbevolve/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUnixSocketConnection(t *testing.T) {
	sock := testutil.StartDummyUnixSocket(t, "mysql-socket-test", "mysql.sock")

	db, err := NewDatabase(database.Config{
		DbName:   "testdb",
		User:     "testuser",
		Password: "testpass",
		Socket:   sock.Path,
	})
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	defer db.Close()

	err = db.DB().Ping()
	if err == nil {
		t.Fatal("expected connection to fail with protocol error")
	}
	// "connection refused" means the socket was not used.
	if strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected socket to be used, got: %v", err)
	}
}

func TestMysqlBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   database.Config
		expected string
	}{
		{
			name:     "tcp",
			config:   database.Config{DbName: "app", User: "root", Host: "127.0.0.1", Port: 3306},
			expected: "root@tcp(127.0.0.1:3306)/app",
		},
		{
			name:     "socket",
			config:   database.Config{DbName: "app", User: "root", Password: "secret", Socket: "/tmp/mysql.sock"},
			expected: "root:secret@unix(/tmp/mysql.sock)/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mysqlBuildDSN(tt.config))
		})
	}
}
