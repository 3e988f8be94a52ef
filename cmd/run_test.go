package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rltest/internal/config"
	"rltest/internal/harness"
)

const pingScenario = `name: ping
steps:
  - command: [PING]
    expect:
      equal: PONG
---
name: echo
steps:
  - command: [ECHO, hello]
    expect:
      equal: hello
---
name: broken
steps:
  - command: [ECHO, hello]
    expect:
      equal: goodbye
`

func TestRunScenarios(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ping.yaml"), []byte(pingScenario), 0644))

	d := config.Default()
	d.LogDir = t.TempDir()

	tests := []struct {
		name       string
		cases      []string
		wantPassed int
		wantFailed int
	}{
		{name: "all", wantPassed: 2, wantFailed: 1},
		{name: "selected", cases: []string{"ping", "echo"}, wantPassed: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			f := &stubFactory{}
			s, err := runScenarios(context.Background(), d, harness.Options{Out: &out, Factory: f, Quiet: true}, dir, tt.cases)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPassed, s.Passed)
			assert.Equal(t, tt.wantFailed, s.Failed)
			require.Len(t, f.built, 1, "scenarios with equal settings share one environment")
			assert.Equal(t, 1, f.built[0].stops)
		})
	}
}

func TestRunScenarios_UnknownCaseIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ping.yaml"), []byte(pingScenario), 0644))
	d := config.Default()
	d.LogDir = t.TempDir()

	for _, names := range [][]string{{"nope"}, {"ping", "pong"}} {
		f := &stubFactory{}
		_, err := runScenarios(context.Background(), d, harness.Options{Out: &bytes.Buffer{}, Factory: f, Quiet: true}, dir, names)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown test case(s): "+names[len(names)-1])
		assert.Empty(t, f.built, "nothing runs when a selected case is unknown")
	}
}

func TestRunScenarios_EmptyDirectory(t *testing.T) {
	var out bytes.Buffer
	f := &stubFactory{}
	s, err := runScenarios(context.Background(), config.Default(), harness.Options{Out: &out, Factory: f}, t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Total)
	assert.Contains(t, out.String(), "No test scenarios found")
	assert.Empty(t, f.built)
}

func TestRunScenarios_LoadError(t *testing.T) {
	_, err := runScenarios(context.Background(), config.Default(), harness.Options{Factory: &stubFactory{}},
		filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "failed to load test scenarios"))
}

func TestStartEnv(t *testing.T) {
	d := config.Default()
	d.LogDir = t.TempDir()
	f := &stubFactory{}
	var out bytes.Buffer

	require.NoError(t, startEnv(context.Background(), d, f, &out, strings.NewReader(""), false))

	require.Len(t, f.built, 1)
	assert.Equal(t, 1, f.built[0].starts)
	assert.Equal(t, 1, f.built[0].stops)
	assert.Contains(t, out.String(), "is up:")
	assert.Contains(t, out.String(), "\tstub server for oss")
}

func TestStartEnv_WaitsForCancellation(t *testing.T) {
	d := config.Default()
	d.LogDir = t.TempDir()
	f := &stubFactory{}
	var out bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, startEnv(ctx, d, f, &out, strings.NewReader(""), true))

	assert.Contains(t, out.String(), "Press Ctrl+C")
	assert.Equal(t, 1, f.built[0].stops)
}

func TestStartEnv_DebugPause(t *testing.T) {
	d := config.Default()
	d.LogDir = t.TempDir()
	d.DebugPause = true
	f := &stubFactory{}
	var out bytes.Buffer

	require.NoError(t, startEnv(context.Background(), d, f, &out, strings.NewReader("\n"), false))
	assert.Contains(t, out.String(), "press Enter to continue")
}

func TestStartEnv_InvalidDefaults(t *testing.T) {
	d := config.Default()
	d.Shards = 0
	err := startEnv(context.Background(), d, &stubFactory{}, &bytes.Buffer{}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}
