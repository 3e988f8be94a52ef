package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeConn records commands and answers them through reply.
type fakeConn struct {
	mu       sync.Mutex
	endpoint string
	commands [][]interface{}
	closed   bool
	reply    func(args []interface{}) (interface{}, error)
}

func (c *fakeConn) Do(ctx context.Context, args ...interface{}) (interface{}, error) {
	c.mu.Lock()
	c.commands = append(c.commands, args)
	reply := c.reply
	c.mu.Unlock()
	if reply != nil {
		return reply(args)
	}
	return defaultReply(args)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// sent returns every command name sent, upper-cased and joined with its
// first argument when there is one.
func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, cmd := range c.commands {
		parts := make([]string, 0, 2)
		for i, a := range cmd {
			if i > 1 {
				break
			}
			parts = append(parts, strings.ToUpper(fmt.Sprint(a)))
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

func defaultReply(args []interface{}) (interface{}, error) {
	name := strings.ToUpper(fmt.Sprint(args[0]))
	switch name {
	case "PING":
		return "PONG", nil
	case "INFO":
		return "# Replication\r\nrole:slave\r\nmaster_link_status:up\r\n# Persistence\r\naof_rewrite_in_progress:0\r\n", nil
	case "CLUSTER":
		sub := strings.ToUpper(fmt.Sprint(args[1]))
		switch sub {
		case "INFO":
			return "cluster_state:ok\r\ncluster_slots_assigned:16384\r\n", nil
		case "MYID":
			return "0123456789abcdef", nil
		}
		return "OK", nil
	default:
		return "OK", nil
	}
}

// fakeDialer hands out fakeConns and remembers them by address.
type fakeDialer struct {
	mu      sync.Mutex
	conns   map[string]*fakeConn
	cluster *fakeConn
	reply   func(args []interface{}) (interface{}, error)
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(map[string]*fakeConn)}
}

func (d *fakeDialer) Dial(ep Endpoint, password string) Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeConn{endpoint: ep.String(), reply: d.reply}
	d.conns[ep.String()] = c
	return c
}

func (d *fakeDialer) DialCluster(addrs []string, password string) Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cluster = &fakeConn{endpoint: strings.Join(addrs, ","), reply: d.reply}
	return d.cluster
}

func (d *fakeDialer) conn(addr string) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[addr]
}

// fakeServerBinary writes a shell script that ignores its arguments and
// runs until SIGTERM, standing in for a server binary.
func fakeServerBinary(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "fake-server")
	script := "#!/bin/sh\ntrap 'exit 0' TERM\nwhile :; do sleep 0.05; done\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}
