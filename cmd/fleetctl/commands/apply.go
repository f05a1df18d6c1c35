package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/fleetctl/cmd/fleetctl/handlers"
)

// Apply returns the command that reconciles the fleet towards a parameters
// file.
//
// Flags given on the command line override the matching file fields.
//
// Environment variables:
//
//	AWS_*: credentials and region for the ec2 provider
//	HCLOUD_TOKEN: API token for the hcloud provider
func Apply(opts *handlers.Options) *cobra.Command {
	var (
		flags       handlers.ApplyFlags
		count       int
		exactCount  int
		wait        bool
		waitTimeout int
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconcile the fleet towards the declared parameters",
		Long: `Apply reads fleet parameters and reconciles the fleet towards them.

Depending on state, instances are launched (present), held at an exact
count under a tag (present with exact_count), started, stopped, rebooted
or terminated.

Examples:
  # Launch instances described in fleet.yaml
  fleetctl apply -f fleet.yaml

  # Keep exactly five web servers running
  fleetctl apply -f web.yaml --exact-count 5 --count-tag role --wait

  # Try a parameters file against the simulator
  fleetctl apply -f fleet.yaml --provider memory -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			if fs.Changed("count") {
				flags.Count = &count
			}
			if fs.Changed("exact-count") {
				flags.ExactCount = &exactCount
			}
			if fs.Changed("wait") {
				flags.Wait = &wait
			}
			if fs.Changed("wait-timeout") {
				flags.WaitTimeout = &waitTimeout
			}
			return handlers.Apply(cmd.Context(), *opts, flags, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.ParamsPath, "file", "f", "", "Path to the fleet parameters YAML file")
	f.StringVar(&flags.State, "state", "", "Desired state: present, absent, running, stopped or restarted")
	f.IntVar(&count, "count", 0, "Number of instances to launch")
	f.IntVar(&exactCount, "exact-count", 0, "Exact number of running instances under --count-tag")
	f.StringVar(&flags.CountTag, "count-tag", "", "Tag filter counted by --exact-count (name, list or mapping)")
	f.BoolVar(&wait, "wait", false, "Wait for instances to reach the desired state")
	f.IntVar(&waitTimeout, "wait-timeout", 0, "Seconds to wait before giving up")
	f.StringVar(&flags.Image, "image", "", "Image to launch")
	f.StringVar(&flags.InstanceType, "instance-type", "", "Instance type to launch")
	f.StringVar(&flags.Zone, "zone", "", "Placement zone")
	f.StringVar(&flags.ClientToken, "id", "", "Idempotency token for launches")
	f.StringToStringVar(&flags.Tags, "tag", nil, "Instance tag as key=value (repeatable)")

	return cmd
}
