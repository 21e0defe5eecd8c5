package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "factview", cmd.Use)
	assert.Equal(t, Version, cmd.Version)
	assert.Contains(t, cmd.Long, "view models")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"validate", "run", "show", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flag    string
		def     string
	}{
		{"run", "db", ":memory:"},
		{"show", "db", ""},
		{"show", "root", ""},
		{"show", "view", ""},
		{"test", "update", "false"},
		{"test", "filter", ""},
	}
	cmd := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			f := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	specsDir, _ := newWorkspace(t)

	_, err := execute(NewRootCommand(), "--format", "yaml", "validate", specsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestRootDispatchesSubcommand(t *testing.T) {
	specsDir, _ := newWorkspace(t)

	out, err := execute(NewRootCommand(), "validate", specsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "All specs valid")
}

func TestEnvironmentDefaults(t *testing.T) {
	t.Setenv("FACTVIEW_FORMAT", "json")
	t.Setenv("FACTVIEW_VERBOSE", "true")
	t.Setenv("FACTVIEW_DB", "/tmp/facts.db")

	cmd := NewRootCommand()
	assert.Equal(t, "json", cmd.PersistentFlags().Lookup("format").DefValue)
	assert.Equal(t, "true", cmd.PersistentFlags().Lookup("verbose").DefValue)

	for _, name := range []string{"run", "show"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, "/tmp/facts.db", sub.Flags().Lookup("db").DefValue, name)
	}
}

func TestEnvironmentInvalid(t *testing.T) {
	t.Setenv("FACTVIEW_VERBOSE", "sometimes")
	specsDir, _ := newWorkspace(t)

	_, err := execute(NewRootCommand(), "validate", specsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestLoadEnvironmentDefaults(t *testing.T) {
	t.Setenv("FACTVIEW_FORMAT", "json")
	require.NoError(t, os.Unsetenv("FACTVIEW_FORMAT"))
	e, err := LoadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "text", e.Format)
}
