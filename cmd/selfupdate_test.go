package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfUpdateCmd_IsRegistered(t *testing.T) {
	found, _, err := rootCmd.Find([]string{"self-update"})
	require.NoError(t, err)
	assert.Equal(t, "self-update", found.Use)
	assert.NotNil(t, found.RunE)
	assert.Contains(t, found.Long, "rltest")

	owner, repo, ok := strings.Cut(githubRepoSlug, "/")
	require.True(t, ok)
	assert.Equal(t, "RedisLabsModules", owner)
	assert.Equal(t, "RLTest", repo)
}

func TestSelfUpdate_RefusesDevelopmentBuilds(t *testing.T) {
	original := rootCmd.Version
	t.Cleanup(func() {
		SetVersion(original)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	for _, version := range []string{"", "dev"} {
		t.Run("version "+version, func(t *testing.T) {
			SetVersion(version)
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs([]string{"self-update"})

			err := rootCmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "cannot self-update a development version")
			assert.NotContains(t, out.String(), "Updating rltest")
		})
	}
}

func TestSelfUpdateCmd_Help(t *testing.T) {
	var buf bytes.Buffer
	c := newSelfUpdateCmd()
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetArgs([]string{"--help"})

	require.NoError(t, c.Execute())
	assert.Contains(t, buf.String(), "Checks for the latest release of rltest")
}
