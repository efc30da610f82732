//go:build !windows

package testutil

import (
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

// DummyUnixSocket answers every connection with garbage, so that a driver dialing it fails with
// a protocol error instead of "connection refused".
type DummyUnixSocket struct {
	Dir      string
	Path     string
	listener net.Listener
	closed   atomic.Bool
}

// StartDummyUnixSocket listens on socketName in a new temporary directory,
// e.g. "mysql.sock" or ".s.PGSQL.5432".
func StartDummyUnixSocket(t *testing.T, dirPrefix, socketName string) *DummyUnixSocket {
	t.Helper()

	dir, err := os.MkdirTemp("", dirPrefix)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, socketName)
	listener, err := net.Listen("unix", path)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}

	sock := &DummyUnixSocket{Dir: dir, Path: path, listener: listener}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Write([]byte("dummy socket response\n"))
			conn.Close()
		}
	}()
	t.Cleanup(sock.Close)
	return sock
}

func (s *DummyUnixSocket) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.listener.Close()
	os.RemoveAll(s.Dir)
}
