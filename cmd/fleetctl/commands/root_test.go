package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "fleetctl", cmd.Use)
	assert.Equal(t, "Reconcile cloud instance fleets towards a declared state", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"apply", "terminate", "start", "stop", "restart", "version"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), 6)
}

func TestRoot_PersistentFlags(t *testing.T) {
	cmd := Root()

	for _, name := range []string{"provider", "region", "profile", "endpoint", "output", "yes", "metrics-file", "report", "verbose", "zap-log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "ec2", cmd.PersistentFlags().Lookup("provider").DefValue)
}

func TestRoot_RejectsUnknownProvider(t *testing.T) {
	cmd := Root()
	cmd.SetArgs([]string{"--provider", "gcp", "version"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "unknown provider")
}

func TestLifecycleCommands(t *testing.T) {
	cmd := Root()

	terminate, _, err := cmd.Find([]string{"terminate"})
	require.NoError(t, err)
	assert.Error(t, terminate.Args(terminate, nil))
	assert.Nil(t, terminate.Flags().Lookup("tag"))
	assert.NotNil(t, terminate.Flags().Lookup("wait"))
	assert.Contains(t, terminate.Aliases, "rm")

	restart, _, err := cmd.Find([]string{"restart"})
	require.NoError(t, err)
	assert.NotNil(t, restart.Flags().Lookup("tag"))
	assert.Nil(t, restart.Flags().Lookup("wait"))

	stop, _, err := cmd.Find([]string{"stop"})
	require.NoError(t, err)
	assert.Equal(t, "true", stop.Flags().Lookup("termination-protection").NoOptDefVal)
}

func TestApplyCommand_Flags(t *testing.T) {
	cmd := Apply(nil)

	for _, name := range []string{"file", "state", "count", "exact-count", "count-tag", "wait", "wait-timeout", "image", "instance-type", "zone", "id", "tag"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "f", cmd.Flags().Lookup("file").Shorthand)
}

func TestOptionalBool(t *testing.T) {
	var target *bool
	v := newOptionalBool(&target)

	assert.Empty(t, v.String())
	require.NoError(t, v.Set("false"))
	require.NotNil(t, target)
	assert.False(t, *target)
	assert.Equal(t, "false", v.String())
	assert.Error(t, v.Set("maybe"))
	assert.Equal(t, "bool", v.Type())
}
