package harness

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rltest/internal/env"
)

const basicScenarios = `name: set-get
description: write a key and read it back
steps:
  - command: [SET, foo, bar]
    expect:
      ok: true
  - name: read back
    command: [GET, foo]
    expect:
      equal: bar
  - command: [DBSIZE]
    expect:
      equal: 1
      truthy: true
  - command: [GET, missing]
    expect:
      nil: true
  - command: [NOSUCH]
    expect:
      error_contains: unknown command
---
name: flushed
env:
  use_aof: true
steps:
  - flush: true
  - reload: true
    command: [KEYS, "*"]
    expect:
      equal: []
`

const clusterScenario = `name: cluster-only-skip
skip_on_cluster: true
env:
  topology: oss-cluster
  shards: 3
  module_args: [A, "1"]
steps:
  - command: [PING]
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenarios_Directory(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b/basic.yaml", basicScenarios)
	writeScenario(t, dir, "a/cluster.yml", clusterScenario)
	writeScenario(t, dir, "notes.txt", "not a scenario")

	scenarios, err := NewScenarioLoader(false).LoadScenarios(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 3)

	assert.Equal(t, "cluster-only-skip", scenarios[0].Name, "files are read in path order")
	assert.Equal(t, "set-get", scenarios[1].Name)
	assert.Equal(t, "flushed", scenarios[2].Name)

	opts := scenarios[0].Options()
	assert.Equal(t, "oss-cluster", opts.Topology)
	assert.Equal(t, 3, opts.Shards)
	assert.Equal(t, []string{"A", "1"}, opts.ModuleArgs)
	assert.Nil(t, opts.UseAOF)

	require.NotNil(t, scenarios[2].Options().UseAOF)
	assert.True(t, *scenarios[2].Options().UseAOF)

	assert.Equal(t, 4, scenarios[1].Steps[0].line)
	assert.Equal(t, 7, scenarios[1].Steps[1].line)
}

func TestLoadScenarios_SingleFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "cluster.yaml", clusterScenario)

	scenarios, err := NewScenarioLoader(true).LoadScenarios(path)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.True(t, scenarios[0].SkipOnCluster)
}

func TestLoadScenarios_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "no steps",
			files:   map[string]string{"x.yaml": "name: empty\n"},
			wantErr: "has no steps",
		},
		{
			name:    "missing name",
			files:   map[string]string{"x.yaml": "steps:\n  - command: [PING]\n"},
			wantErr: "name is required",
		},
		{
			name:    "step without command",
			files:   map[string]string{"x.yaml": "name: s\nsteps:\n  - name: nothing\n"},
			wantErr: "neither a command nor an action",
		},
		{
			name:    "unknown field",
			files:   map[string]string{"x.yaml": "name: s\ntopology: oss\nsteps:\n  - command: [PING]\n"},
			wantErr: "failed to parse",
		},
		{
			name:    "misspelled step key",
			files:   map[string]string{"x.yaml": "name: s\nsteps:\n  - command: [GET, k]\n    exepct:\n      equal: v\n"},
			wantErr: "field exepct not found",
		},
		{
			name:    "misspelled expectation key",
			files:   map[string]string{"x.yaml": "name: s\nsteps:\n  - command: [GET, k]\n    expect:\n      eqaul: v\n"},
			wantErr: "field eqaul not found",
		},
		{
			name: "duplicate name",
			files: map[string]string{
				"a.yaml": "name: s\nsteps:\n  - command: [PING]\n",
				"b.yaml": "name: s\nsteps:\n  - command: [PING]\n",
			},
			wantErr: "already defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeScenario(t, dir, name, content)
			}
			_, err := NewScenarioLoader(false).LoadScenarios(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := NewScenarioLoader(false).LoadScenarios(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestScenarioCases_Run(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "basic.yaml", basicScenarios)
	writeScenario(t, dir, "cluster.yaml", clusterScenario)

	scenarios, err := NewScenarioLoader(false).LoadScenarios(dir)
	require.NoError(t, err)

	r, f := newTestRunner(t, env.Settings{})
	s := r.Run(context.Background(), Cases(scenarios))

	require.Len(t, s.Cases, 3)
	for _, c := range s.Cases {
		assert.Empty(t, c.Failures, c.Name)
	}
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Skipped)
	assert.True(t, s.OK())

	require.Len(t, f.built, 3)
	flushedRunner := f.built[1]
	assert.Equal(t, 1, flushedRunner.flushes)
	assert.Equal(t, 1, flushedRunner.reloads)
}

func TestScenarioCases_FailuresPointIntoFile(t *testing.T) {
	content := `name: wrong
steps:
  - command: [SET, k, v]
  - name: compare
    command: [GET, k]
    expect:
      equal: other
  - command: [GET, k]
    expect:
      error: true
  - command: [BOGUS]
`
	path := writeScenario(t, t.TempDir(), "wrong.yaml", content)
	scenarios, err := NewScenarioLoader(false).LoadScenarios(path)
	require.NoError(t, err)

	var out bytes.Buffer
	r, _ := newTestRunner(t, env.Settings{Out: &out})
	s := r.Run(context.Background(), Cases(scenarios))

	require.Len(t, s.Cases, 1)
	failures := s.Cases[0].Failures
	require.Len(t, failures, 3)
	assert.Contains(t, failures[0], "wrong.yaml:4")
	assert.Contains(t, failures[0], `[step "compare"]`)
	assert.Contains(t, failures[1], "raised an error")
	assert.Contains(t, failures[1], "wrong.yaml:8")
	assert.Contains(t, failures[2], "did not raise an error")
	assert.Contains(t, failures[2], "unknown command")
	assert.Contains(t, out.String(), "(FAIL)")
}
