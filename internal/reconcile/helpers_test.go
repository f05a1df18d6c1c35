package reconcile

import (
	"context"
	"slices"
	"testing"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	testutil "github.com/imamik/fleetctl/internal/testing"
	"github.com/stretchr/testify/mock"
)

func newTestEngine(api fleet.API) (*Engine, *testutil.FakeClock) {
	clock := testutil.NewFakeClock()
	return New(api, WithClock(clock), WithTimeouts(config.DefaultTimeouts())), clock
}

func byIDs(ids ...string) any {
	return mock.MatchedBy(func(f fleet.Filter) bool {
		return slices.Equal(f.IDs, ids) && len(f.States) == 0 && f.ClientToken == ""
	})
}

func byToken(token string) any {
	return mock.MatchedBy(func(f fleet.Filter) bool {
		return f.ClientToken == token
	})
}

func byRunningTag() any {
	return mock.MatchedBy(func(f fleet.Filter) bool {
		return !f.Tags.IsZero() && slices.Equal(f.States, []fleet.State{fleet.StateRunning})
	})
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	return context.WithCancel(testutil.TestContext(t))
}
