package handlers

import (
	"context"
	"io"

	"github.com/imamik/fleetctl/internal/config"
)

// LifecycleFlags select existing instances for terminate, start, stop and
// restart.
type LifecycleFlags struct {
	State                 config.State
	IDs                   []string
	Tags                  map[string]string
	Wait                  bool
	WaitTimeout           int
	TerminationProtection *bool
}

// Lifecycle handles the terminate, start, stop and restart commands.
func Lifecycle(ctx context.Context, opts Options, flags LifecycleFlags, out io.Writer) error {
	params := &config.Params{
		State:                 flags.State,
		InstanceIDs:           flags.IDs,
		InstanceTags:          flags.Tags,
		Wait:                  flags.Wait,
		WaitTimeout:           flags.WaitTimeout,
		TerminationProtection: flags.TerminationProtection,
	}
	return execute(ctx, opts, params, out)
}
