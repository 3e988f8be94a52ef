package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"rltest/pkg/logging"
)

const (
	readyAttempts = 100
	readyDelay    = 100 * time.Millisecond
)

// waitFor retries check until it succeeds, the attempts run out or alive
// reports the process is gone. slowdown stretches the delay for
// processes running under a debugger.
func waitFor(ctx context.Context, what string, slowdown int, alive func() bool, check func() error) error {
	if slowdown < 1 {
		slowdown = 1
	}
	err := retry.Do(
		func() error {
			if alive != nil && !alive() {
				return retry.Unrecoverable(fmt.Errorf("%s exited before becoming ready", what))
			}
			return check()
		},
		retry.Context(ctx),
		retry.Attempts(readyAttempts),
		retry.Delay(readyDelay*time.Duration(slowdown)),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Debug("Runner", "%s not ready yet (attempt %d): %v", what, n+1, err)
		}),
	)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", what, err)
	}
	return nil
}

// ping checks that conn answers PING.
func ping(ctx context.Context, conn Conn) error {
	res, err := conn.Do(ctx, "PING")
	if err != nil {
		return err
	}
	if s, ok := res.(string); !ok || s != "PONG" {
		return fmt.Errorf("unexpected PING reply %v", res)
	}
	return nil
}

// infoField extracts one "key:value" field from an INFO reply.
func infoField(info, key string) (string, bool) {
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if k, v, ok := strings.Cut(line, ":"); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// expectInfo checks that an INFO-style command reports key:want.
func expectInfo(ctx context.Context, conn Conn, key, want string, args ...interface{}) error {
	res, err := conn.Do(ctx, args...)
	if err != nil {
		return err
	}
	info, ok := res.(string)
	if !ok {
		return fmt.Errorf("unexpected %v reply type %T", args, res)
	}
	got, found := infoField(info, key)
	if !found {
		return fmt.Errorf("%s missing from %v reply", key, args)
	}
	if got != want {
		return errors.New(key + " is " + got + ", want " + want)
	}
	return nil
}
