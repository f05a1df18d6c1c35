package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fleetctl/cmd/fleetctl/handlers"
	"github.com/imamik/fleetctl/internal/config"
)

// Terminate returns the command that terminates instances by id.
func Terminate(opts *handlers.Options) *cobra.Command {
	return lifecycleCommand(opts, lifecycleSpec{
		use:   "terminate ID...",
		short: "Terminate instances",
		long: `Terminate the given instances.

Instances already shutting down or terminated are skipped. With --wait the
command blocks until every instance reports terminated.

Example:
  fleetctl terminate i-0abc i-0def --wait

WARNING: This operation is irreversible.`,
		state:   config.StateAbsent,
		args:    cobra.MinimumNArgs(1),
		wait:    true,
		byTags:  false,
		aliases: []string{"rm"},
	})
}

// Start returns the command that starts stopped instances.
func Start(opts *handlers.Options) *cobra.Command {
	return lifecycleCommand(opts, lifecycleSpec{
		use:   "start [ID...]",
		short: "Start instances selected by id or tag",
		long: `Start the selected instances.

Instances are selected by id, by --tag, or by both (intersection).

Examples:
  fleetctl start i-0abc --wait
  fleetctl start --tag role=web`,
		state:  config.StateRunning,
		args:   cobra.ArbitraryArgs,
		wait:   true,
		byTags: true,
	})
}

// Stop returns the command that stops running instances.
func Stop(opts *handlers.Options) *cobra.Command {
	return lifecycleCommand(opts, lifecycleSpec{
		use:   "stop [ID...]",
		short: "Stop instances selected by id or tag",
		long: `Stop the selected instances.

Instances are selected by id, by --tag, or by both (intersection).

Examples:
  fleetctl stop --tag env=staging --wait`,
		state:  config.StateStopped,
		args:   cobra.ArbitraryArgs,
		wait:   true,
		byTags: true,
	})
}

// Restart returns the command that reboots instances.
func Restart(opts *handlers.Options) *cobra.Command {
	return lifecycleCommand(opts, lifecycleSpec{
		use:   "restart [ID...]",
		short: "Reboot instances selected by id or tag",
		long: `Reboot the selected instances. The command does not wait for the
reboot to complete.

Examples:
  fleetctl restart i-0abc i-0def`,
		state:  config.StateRestarted,
		args:   cobra.ArbitraryArgs,
		byTags: true,
	})
}

type lifecycleSpec struct {
	use     string
	short   string
	long    string
	state   config.State
	args    cobra.PositionalArgs
	wait    bool
	byTags  bool
	aliases []string
}

func lifecycleCommand(opts *handlers.Options, spec lifecycleSpec) *cobra.Command {
	flags := handlers.LifecycleFlags{State: spec.state}

	cmd := &cobra.Command{
		Use:     spec.use,
		Short:   spec.short,
		Long:    spec.long,
		Args:    spec.args,
		Aliases: spec.aliases,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.IDs = args
			return handlers.Lifecycle(cmd.Context(), *opts, flags, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	if spec.byTags {
		f.StringToStringVar(&flags.Tags, "tag", nil, "Select instances carrying this key=value tag (repeatable)")
	}
	if spec.wait {
		f.BoolVar(&flags.Wait, "wait", false, "Wait for the instances to reach the target state")
		f.IntVar(&flags.WaitTimeout, "wait-timeout", config.DefaultWaitTimeout, "Seconds to wait before giving up")
	}
	if spec.byTags {
		f.Var(newOptionalBool(&flags.TerminationProtection), "termination-protection", "Set termination protection on the selected instances")
		f.Lookup("termination-protection").NoOptDefVal = "true"
	}

	return cmd
}
