package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rltest/internal/runner"
)

var errClientClosed = errors.New("redis: client is closed")

// storeConn serves a shared key space and fails every command once closed,
// like a go-redis client.
type storeConn struct {
	mu     *sync.Mutex
	data   map[string]string
	closed bool
}

func (c *storeConn) Do(ctx context.Context, args ...interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClientClosed
	}
	switch strings.ToUpper(fmt.Sprint(args[0])) {
	case "PING":
		return "PONG", nil
	case "SET":
		c.data[fmt.Sprint(args[1])] = fmt.Sprint(args[2])
		return "OK", nil
	case "GET":
		v, ok := c.data[fmt.Sprint(args[1])]
		if !ok {
			return nil, nil
		}
		return v, nil
	}
	return "OK", nil
}

func (c *storeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// storeDialer keeps one key space per address so data survives a restart.
type storeDialer struct {
	mu     sync.Mutex
	stores map[string]map[string]string
}

func (d *storeDialer) Dial(ep runner.Endpoint, password string) runner.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stores == nil {
		d.stores = make(map[string]map[string]string)
	}
	data, ok := d.stores[ep.String()]
	if !ok {
		data = make(map[string]string)
		d.stores[ep.String()] = data
	}
	return &storeConn{mu: &d.mu, data: data}
}

func (d *storeDialer) DialCluster(addrs []string, password string) runner.Conn {
	return d.Dial(runner.Endpoint{Addr: strings.Join(addrs, ",")}, password)
}

// standaloneFactory builds real standalone runners around a shell script.
type standaloneFactory struct {
	binary string
	logDir string
	dialer runner.Dialer
}

func (f standaloneFactory) Build(desc Descriptor) (runner.Runner, error) {
	return runner.NewStandalone(runner.StandaloneConfig{
		ServerOptions: runner.ServerOptions{Binary: f.binary, LogDir: f.logDir},
		RandomPorts:   true,
		Dialer:        f.dialer,
	}), nil
}

func scriptServer(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "server")
	script := "#!/bin/sh\ntrap 'exit 0' TERM\nwhile :; do sleep 0.05; done\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestEnv_CommandsFollowRestart(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t)
	f := standaloneFactory{binary: scriptServer(t), logDir: s.LogDir, dialer: &storeDialer{}}

	c, err := Select(ctx, nil, baseDescriptor(), f, s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Runner.Stop(ctx) })

	e := New(ctx, "restart", c, s)
	_, err = e.Cmd("SET", "k", "v")
	require.NoError(t, err)
	before := e.Conn()

	require.NoError(t, e.RestartAndReload(0))
	assert.NotSame(t, before, e.Conn())

	res, err := e.Cmd("GET", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", res)
	e.Expect("SET", "k", "w").OK()
	assert.Equal(t, 0, e.FailureCount())

	reused, err := Select(ctx, c, baseDescriptor(), f, s)
	require.NoError(t, err)
	require.True(t, reused.Reused)

	next := New(ctx, "after restart", reused, s)
	next.Expect("GET", "k").Equal("w")
	assert.Equal(t, 0, next.FailureCount())
}
