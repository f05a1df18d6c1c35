package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	testutil "github.com/imamik/fleetctl/internal/testing"
	"github.com/imamik/fleetctl/internal/util/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAwaitState_ReturnsAfterAllMatch(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	a := testutil.NewInstance("a").Running().Build()
	b := testutil.NewInstance("b").Running().Build()
	bPending := testutil.NewInstance("b").Build()

	api.On("ListInstances", mock.Anything, byIDs("a", "b")).Return([]fleet.Instance{a, bPending}, nil).Once()
	api.On("ListInstances", mock.Anything, byIDs("a", "b")).Return([]fleet.Instance{a, b}, nil).Once()

	clock := testutil.NewFakeClock()
	w := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)

	got, err := w.AwaitState(testutil.TestContext(t), []string{"a", "b"}, fleet.StateRunning, clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fleet.IDs(got))
	api.AssertNumberOfCalls(t, "ListInstances", 2)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Sleeps())
}

func TestAwaitState_EmptyAndNotFoundAreTransient(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	notFound := &fleet.APIError{Code: fleet.CodeInstanceNotFound, ProviderCode: "InvalidInstanceID.NotFound"}
	api.On("ListInstances", mock.Anything, byIDs("a")).Return(nil, notFound).Once()
	api.On("ListInstances", mock.Anything, byIDs("a")).Return([]fleet.Instance{}, nil).Once()
	api.On("ListInstances", mock.Anything, byIDs("a")).Return(testutil.Instances(fleet.StateRunning, "a"), nil).Once()

	clock := testutil.NewFakeClock()
	w := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)

	got, err := w.AwaitState(testutil.TestContext(t), []string{"a"}, fleet.StateRunning, clock.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, clock.Sleeps())
}

func TestAwaitState_Timeout(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("a")).Return(testutil.Instances(fleet.StatePending, "a"), nil)

	clock := testutil.NewFakeClock()
	w := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)
	deadline := clock.Now().Add(300 * time.Second)

	_, err := w.AwaitState(testutil.TestContext(t), []string{"a"}, fleet.StateRunning, deadline)
	require.Error(t, err)
	assert.True(t, fleet.IsKind(err, fleet.KindTimeout))
	assert.Contains(t, err.Error(), deadline.Format(time.RFC1123))
	// 300s at a 5s cadence.
	api.AssertNumberOfCalls(t, "ListInstances", 60)
}

func TestAwaitState_NonPositiveTimeoutReadsOnce(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("a")).Return(testutil.Instances(fleet.StatePending, "a"), nil)

	clock := testutil.NewFakeClock()
	w := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)

	_, err := w.AwaitState(testutil.TestContext(t), []string{"a"}, fleet.StateRunning, poll.Deadline(clock, 0))
	require.Error(t, err)
	assert.True(t, fleet.IsKind(err, fleet.KindTimeout))
	api.AssertNumberOfCalls(t, "ListInstances", 1)
}

func TestAwaitState_ProviderErrorIsTerminal(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, mock.Anything).Return(nil, errors.New("throttled")).Once()

	clock := testutil.NewFakeClock()
	w := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)

	_, err := w.AwaitState(testutil.TestContext(t), []string{"a"}, fleet.StateRunning, clock.Now().Add(time.Minute))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Empty(t, clock.Sleeps())
}

func TestObserve_SingleSubstantiveRead(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("a")).Return([]fleet.Instance{}, nil).Once()
	api.On("ListInstances", mock.Anything, byIDs("a")).Return(testutil.Instances(fleet.StatePending, "a"), nil).Once()

	clock := testutil.NewFakeClock()
	w := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)

	got, err := w.Observe(testutil.TestContext(t), []string{"a"}, clock.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fleet.StatePending, got[0].State)
}

func TestAwaitState_ContextCancelled(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, mock.Anything).Return(testutil.Instances(fleet.StatePending, "a"), nil)

	ctx, cancel := contextWithCancel(t)
	cancel()

	clock := testutil.NewFakeClock()
	w := NewStateWaiter(api, clock, config.DefaultTimeouts(), nil)
	_, err := w.AwaitState(ctx, []string{"a"}, fleet.StateRunning, clock.Now().Add(time.Minute))
	assert.Error(t, err)
}
