package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "goalctl", cmd.Use)
	assert.Contains(t, cmd.Long, "routine")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"goal", "create"},
		{"goal", "edit"},
		{"goal", "delete"},
		{"goal", "complete"},
		{"goal", "reopen"},
		{"goal", "duplicate"},
		{"goal", "show"},
		{"goal", "list"},
		{"routine", "occurrences"},
		{"routine", "recompute"},
		{"generate"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
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

	for _, name := range []string{"config", "db", "yes", "no-input"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s", name)
	}
}

func TestGoalCreateFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"goal", "create"})
	require.NoError(t, err)

	typeFlag := createCmd.Flags().Lookup("type")
	require.NotNil(t, typeFlag)
	assert.Equal(t, "t", typeFlag.Shorthand)

	for _, name := range []string{"name", "priority", "start", "end", "frequency", "routine-time", "date", "time", "parent", "child", "event", "all-day"} {
		assert.NotNil(t, createCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Nil(t, createCmd.Flags().Lookup("scope"))
}

func TestScopeFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"goal", "edit"}, {"goal", "delete"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.NotNil(t, sub.Flags().Lookup("scope"), "%v --scope", path)
	}
}

func TestGenerateFlags(t *testing.T) {
	cmd := NewRootCommand()
	genCmd, _, err := cmd.Find([]string{"generate"})
	require.NoError(t, err)

	watch := genCmd.Flags().Lookup("watch")
	require.NotNil(t, watch)
	assert.Equal(t, "w", watch.Shorthand)
	assert.NotNil(t, genCmd.Flags().Lookup("cron"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "yaml", "goal", "list"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("xml"))
}
