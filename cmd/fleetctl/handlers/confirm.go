package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/reconcile"
)

// errAborted is returned when the operator declines a confirmation.
var errAborted = errors.New("aborted by user")

// Factory function variables - can be replaced in tests.
var (
	isInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	askConfirm = func(title, description string) (bool, error) {
		var ok bool
		err := huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Terminate").
			Negative("Cancel").
			Value(&ok).
			Run()
		return ok, err
	}
)

// confirmTermination asks before terminating ids. It is skipped with --yes
// or when stdin is not a terminal.
func confirmTermination(opts Options, ids []string) error {
	if opts.Yes || !isInteractive() {
		return nil
	}
	ok, err := askConfirm(
		fmt.Sprintf("Terminate %d instance(s)?", len(ids)),
		strings.Join(ids, "\n")+"\n\nThis cannot be undone.",
	)
	if err != nil {
		return fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		return errAborted
	}
	return nil
}

// confirmScaleDown asks before an exact count run shrinks the fleet, naming
// the instances the engine will pick (lowest ids first).
func confirmScaleDown(ctx context.Context, opts Options, api fleet.API, params *config.Params) error {
	if opts.Yes || !isInteractive() {
		return nil
	}
	running, err := reconcile.NewQuery(api).RunningByTag(ctx, params.CountTag, params.Zone)
	if err != nil {
		return err
	}
	surplus := len(running) - *params.ExactCount
	if surplus <= 0 {
		return nil
	}
	ids := fleet.IDs(running)
	slices.Sort(ids)
	return confirmTermination(opts, ids[:surplus])
}
