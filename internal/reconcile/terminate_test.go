package reconcile

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	testutil "github.com/imamik/fleetctl/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestTerminator(api fleet.API) (*Terminator, *testutil.FakeClock) {
	clock := testutil.NewFakeClock()
	states := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)
	return NewTerminator(api, clock, states, nil), clock
}

func TestTerminate_RequiresIDs(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	term, _ := newTestTerminator(api)

	_, err := term.Terminate(testutil.TestContext(t), nil, false, 0)
	require.Error(t, err)
	assert.True(t, fleet.IsKind(err, fleet.KindValidation))
	assert.Empty(t, api.Calls)
}

func TestTerminate_SkipsInstancesAlreadyGoingAway(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-1", "i-2", "i-3", "i-4")).Return([]fleet.Instance{
		testutil.NewInstance("i-1").Running().Build(),
		testutil.NewInstance("i-2").Stopped().Build(),
		testutil.NewInstance("i-3").WithState(fleet.StateShuttingDown).Build(),
		testutil.NewInstance("i-4").WithState(fleet.StateTerminated).Build(),
	}, nil)
	api.On("TerminateInstance", mock.Anything, "i-1").Return(nil)
	api.On("TerminateInstance", mock.Anything, "i-2").Return(nil)

	term, _ := newTestTerminator(api)
	res, err := term.Terminate(testutil.TestContext(t), []string{"i-1", "i-2", "i-3", "i-4"}, false, 0)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"i-1", "i-2"}, res.IDs)
	api.AssertNumberOfCalls(t, "TerminateInstance", 2)
}

func TestTerminate_NothingToDo(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-1")).
		Return(testutil.Instances(fleet.StateTerminated, "i-1"), nil)

	term, _ := newTestTerminator(api)
	res, err := term.Terminate(testutil.TestContext(t), []string{"i-1"}, true, 300*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Empty(t, res.IDs)
	api.AssertNumberOfCalls(t, "ListInstances", 1)
}

func TestTerminate_WaitRereadsFinalState(t *testing.T) {
	t.Parallel()

	terminatedOnly := mock.MatchedBy(func(f fleet.Filter) bool {
		return slices.Equal(f.States, []fleet.State{fleet.StateTerminated})
	})

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-1")).
		Return(testutil.Instances(fleet.StateRunning, "i-1"), nil).Once()
	api.On("TerminateInstance", mock.Anything, "i-1").Return(nil)
	api.On("ListInstances", mock.Anything, byIDs("i-1")).
		Return(testutil.Instances(fleet.StateShuttingDown, "i-1"), nil).Once()
	api.On("ListInstances", mock.Anything, byIDs("i-1")).
		Return(testutil.Instances(fleet.StateTerminated, "i-1"), nil)
	api.On("ListInstances", mock.Anything, terminatedOnly).
		Return(testutil.Instances(fleet.StateTerminated, "i-1"), nil)

	term, clock := newTestTerminator(api)
	res, err := term.Terminate(testutil.TestContext(t), []string{"i-1"}, true, 300*time.Second)
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, fleet.StateTerminated, res.Instances[0].State)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Sleeps())
	api.AssertExpectations(t)
}

func TestTerminate_ProviderFailure(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-1")).
		Return(testutil.Instances(fleet.StateRunning, "i-1"), nil)
	api.On("TerminateInstance", mock.Anything, "i-1").Return(errors.New("OperationNotPermitted"))

	term, _ := newTestTerminator(api)
	_, err := term.Terminate(testutil.TestContext(t), []string{"i-1"}, false, 0)
	require.Error(t, err)
	assert.True(t, fleet.IsKind(err, fleet.KindTermination))
	assert.Contains(t, err.Error(), "unable to terminate instance")
}
