package runner

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rltest/pkg/logging"
)

// ServerOptions are the process settings shared by every server a runner
// spawns.
type ServerOptions struct {
	// Binary is the server executable
	Binary string
	// Module is loaded with its ModuleArgs when set
	Module     string
	ModuleArgs []string
	UseAOF     bool
	// LogDir receives data files and logs; it must exist
	LogDir string
	// Debugger wraps the server, "valgrind" or a custom command prefix
	Debugger string
	// Env is appended to the process environment
	Env []string
}

// slowdown is the readiness delay multiplier for the configured debugger.
func (o ServerOptions) slowdown() int {
	if o.Debugger != "" {
		return 10
	}
	return 1
}

// server is one server process and the connection used to control it.
type server struct {
	name   string
	opts   ServerOptions
	port   int
	socket string
	extra  []string
	dialer Dialer

	proc     *managedProcess
	conn     Conn
	lastExit int
}

func newServer(name string, opts ServerOptions, port int, socket string, dialer Dialer, extra ...string) *server {
	return &server{
		name:   name,
		opts:   opts,
		port:   port,
		socket: socket,
		extra:  extra,
		dialer: dialer,
	}
}

func (s *server) endpoint() Endpoint {
	if s.socket != "" {
		return Endpoint{Network: "unix", Addr: s.socket}
	}
	return Endpoint{Network: "tcp", Addr: "127.0.0.1:" + strconv.Itoa(s.port)}
}

func (s *server) args() []string {
	args := []string{
		"--port", strconv.Itoa(s.port),
		"--bind", "127.0.0.1",
		"--dir", s.opts.LogDir,
		"--dbfilename", s.name + ".rdb",
		"--logfile", s.name + ".log",
	}
	if s.socket != "" {
		args = append(args, "--unixsocket", s.socket, "--unixsocketperm", "700")
	}
	if s.opts.UseAOF {
		args = append(args, "--appendonly", "yes", "--appendfilename", s.name+".aof")
	}
	args = append(args, s.extra...)
	// module arguments run up to the end of the command line
	if s.opts.Module != "" {
		args = append(args, "--loadmodule", s.opts.Module)
		args = append(args, s.opts.ModuleArgs...)
	}
	return args
}

func (s *server) argv() []string {
	argv := append([]string{s.opts.Binary}, s.args()...)
	switch s.opts.Debugger {
	case "":
		return argv
	case "valgrind":
		return append([]string{
			"valgrind",
			"--leak-check=full",
			"--errors-for-leak-kinds=definite",
			"--error-exitcode=255",
			"--log-file=" + filepath.Join(s.opts.LogDir, s.name+".valgrind.log"),
		}, argv...)
	default:
		return append(strings.Fields(s.opts.Debugger), argv...)
	}
}

// start spawns the process and waits until it answers PING.
func (s *server) start(ctx context.Context) error {
	proc, err := startProcess(s.name, s.argv(), s.opts.Env, filepath.Join(s.opts.LogDir, s.name+".out.log"))
	if err != nil {
		return err
	}
	s.proc = proc
	s.conn = s.dialer.Dial(s.endpoint(), "")

	err = waitFor(ctx, s.name, s.opts.slowdown(), proc.running, func() error {
		return ping(ctx, s.conn)
	})
	if err != nil {
		return fmt.Errorf("%w\n%s", err, proc.tail.String())
	}
	return nil
}

// stop closes the connection and terminates the process.
func (s *server) stop(ctx context.Context) error {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.proc == nil {
		return nil
	}
	err := s.proc.stop(ctx)
	if code := s.proc.exitCode(); code != 0 {
		s.lastExit = code
	}
	s.proc = nil
	return err
}

func (s *server) running() bool {
	return s.proc != nil && s.proc.running()
}

// exitCode is the first non-zero exit code seen, 0 otherwise.
func (s *server) exitCode() int {
	if s.lastExit != 0 {
		return s.lastExit
	}
	if s.proc != nil && !s.proc.running() {
		return s.proc.exitCode()
	}
	return 0
}

// persist writes the dataset to disk and waits for it to finish.
func (s *server) persist(ctx context.Context) error {
	if !s.opts.UseAOF {
		_, err := s.conn.Do(ctx, "SAVE")
		return err
	}
	if _, err := s.conn.Do(ctx, "BGREWRITEAOF"); err != nil {
		return err
	}
	return waitFor(ctx, s.name+" aof rewrite", s.opts.slowdown(), s.running, func() error {
		return expectInfo(ctx, s.conn, "aof_rewrite_in_progress", "0", "INFO", "persistence")
	})
}

// dumpAndReload reloads the dataset in place, or restarts the process
// when restart is set so the dataset is loaded from disk on startup.
func (s *server) dumpAndReload(ctx context.Context, restart bool) error {
	if s.conn == nil {
		return ErrNotStarted
	}
	if !restart {
		cmd := "RELOAD"
		if s.opts.UseAOF {
			cmd = "LOADAOF"
		}
		_, err := s.conn.Do(ctx, "DEBUG", cmd)
		return err
	}

	if err := s.persist(ctx); err != nil {
		return fmt.Errorf("failed to persist %s: %w", s.name, err)
	}
	logging.Info("Runner", "Restarting %s", s.name)
	if err := s.stop(ctx); err != nil {
		return err
	}
	return s.start(ctx)
}

func (s *server) printData(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%s%s:\n", prefix, s.name)
	fmt.Fprintf(w, "%s  endpoint: %s\n", prefix, s.endpoint())
	fmt.Fprintf(w, "%s  args: %s\n", prefix, strings.Join(s.argv(), " "))
	fmt.Fprintf(w, "%s  log: %s\n", prefix, filepath.Join(s.opts.LogDir, s.name+".log"))
	if s.proc != nil {
		state := "running"
		if !s.proc.running() {
			state = "exited (" + strconv.Itoa(s.proc.exitCode()) + ")"
		}
		fmt.Fprintf(w, "%s  pid: %d, %s\n", prefix, s.proc.pid(), state)
	}
}

// stopAll stops servers in reverse order, skipping nil entries, and returns
// the first error.
func stopAll(ctx context.Context, servers []*server) error {
	var first error
	for i := len(servers) - 1; i >= 0; i-- {
		if servers[i] == nil {
			continue
		}
		if err := servers[i].stop(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// worstExit returns the first non-zero exit code among servers.
func worstExit(servers []*server) int {
	for _, s := range servers {
		if code := s.exitCode(); code != 0 {
			return code
		}
	}
	return 0
}

// uptime formats how long ago t was, for env data output.
func uptime(t time.Time) string {
	if t.IsZero() {
		return "not started"
	}
	return time.Since(t).Round(time.Second).String()
}
