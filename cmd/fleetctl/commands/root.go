// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"flag"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/fleetctl/cmd/fleetctl/handlers"
)

// Root returns the root command for the fleetctl CLI.
//
// Provider, output and reporting flags are persistent so every subcommand
// shares them. The zap logging flags are bound to the same flag set.
func Root() *cobra.Command {
	opts := &handlers.Options{}
	zapOpts := zap.Options{}
	var verbose bool

	cmd := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Reconcile cloud instance fleets towards a declared state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if verbose {
				zapOpts.Development = true
			}
			log.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
			cmd.SetContext(log.IntoContext(cmd.Context(), log.Log.WithName("fleetctl")))
			return opts.Validate()
		},
	}

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	f := cmd.PersistentFlags()
	f.BoolVarP(&verbose, "verbose", "v", false, "Enable development logging with debug output")
	f.StringVar(&opts.Provider, "provider", handlers.ProviderEC2, "Fleet provider: ec2, hcloud or memory")
	f.StringVar(&opts.Region, "region", "", "Provider region (default: from the environment)")
	f.StringVar(&opts.Profile, "profile", "", "AWS shared config profile")
	f.StringVar(&opts.Endpoint, "endpoint", "", "Override the provider API endpoint")
	f.StringVarP(&opts.Output, "output", "o", handlers.OutputText, "Output format: text or json")
	f.BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt before terminating instances (state absent, exact_count scale-down)")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	f.StringVar(&opts.Report, "report", "", "Upload the JSON result to an s3://bucket/key location")

	cmd.AddCommand(Apply(opts))
	cmd.AddCommand(Terminate(opts))
	cmd.AddCommand(Start(opts))
	cmd.AddCommand(Stop(opts))
	cmd.AddCommand(Restart(opts))
	cmd.AddCommand(Version())

	return cmd
}
