package memory

import (
	"testing"
	"time"

	"github.com/imamik/fleetctl/internal/fleet"
	testutil "github.com/imamik/fleetctl/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func launchSpec(count int32) fleet.LaunchSpec {
	return fleet.LaunchSpec{ImageID: "ami-1", InstanceType: "t3.micro", Count: count}
}

func TestCreateInstances_TransitionsToRunning(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c := New(WithClock(clocktesting.NewFakePassiveClock(now)), WithTransitionSteps(2))
	ctx := testutil.TestContext(t)

	created, err := c.CreateInstances(ctx, launchSpec(2))
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, fleet.StatePending, created[0].State)
	assert.Equal(t, DefaultZone, created[0].Zone)
	assert.Equal(t, now, created[0].LaunchTime)
	assert.Regexp(t, `^i-[0-9a-f]{17}$`, created[0].ID)

	ids := fleet.IDs(created)
	got, err := c.ListInstances(ctx, fleet.Filter{IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, fleet.StatePending, got[0].State)

	got, err = c.ListInstances(ctx, fleet.Filter{IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, fleet.StateRunning, got[0].State)
	assert.Equal(t, fleet.StateRunning, got[1].State)
}

func TestCreateInstances_ClientTokenReplay(t *testing.T) {
	t.Parallel()

	c := New()
	ctx := testutil.TestContext(t)
	spec := launchSpec(2)
	spec.ClientToken = "tok"

	first, err := c.CreateInstances(ctx, spec)
	require.NoError(t, err)
	second, err := c.CreateInstances(ctx, spec)
	require.NoError(t, err)

	assert.Equal(t, fleet.IDs(first), fleet.IDs(second))
	assert.Len(t, c.All(), 2)
}

func TestCreateInstances_Rejected(t *testing.T) {
	t.Parallel()

	c := New()
	_, err := c.CreateInstances(testutil.TestContext(t), fleet.LaunchSpec{Count: 1})
	assert.Equal(t, "MissingParameter", fleet.ProviderCode(err))

	_, err = c.CreateInstances(testutil.TestContext(t), launchSpec(0))
	assert.Equal(t, "InvalidParameterValue", fleet.ProviderCode(err))
}

func TestListInstances_VisibilityDelay(t *testing.T) {
	t.Parallel()

	c := New(WithVisibilityDelay(2))
	ctx := testutil.TestContext(t)

	created, err := c.CreateInstances(ctx, launchSpec(1))
	require.NoError(t, err)

	_, err = c.ListInstances(ctx, fleet.Filter{IDs: fleet.IDs(created)})
	assert.True(t, fleet.IsNotFound(err))

	all, err := c.ListInstances(ctx, fleet.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListInstances_Filters(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testutil.NewInstance("i-1").Running().WithTag("role", "web").WithZone("a").Build())
	c.Add(testutil.NewInstance("i-2").Stopped().WithTag("role", "db").WithZone("a").Build())
	c.Add(testutil.NewInstance("i-3").Running().WithZone("b").Build())
	ctx := testutil.TestContext(t)

	got, err := c.ListInstances(ctx, fleet.Filter{Tags: fleet.Exists("role")})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-1", "i-2"}, fleet.IDs(got))

	got, err = c.ListInstances(ctx, fleet.Filter{States: []fleet.State{fleet.StateRunning}, Zone: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i-3"}, fleet.IDs(got))

	_, err = c.ListInstances(ctx, fleet.Filter{IDs: []string{"i-1", "i-9"}})
	require.Error(t, err)
	assert.True(t, fleet.IsNotFound(err))
	assert.Equal(t, "InvalidInstanceID.NotFound", fleet.ProviderCode(err))
}

func TestPowerTransitions(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testutil.NewInstance("i-1").Running().Build())
	c.Add(testutil.NewInstance("i-2").Stopped().Build())
	ctx := testutil.TestContext(t)

	require.NoError(t, c.StopInstance(ctx, "i-1"))
	require.NoError(t, c.StartInstance(ctx, "i-2"))
	require.NoError(t, c.StartInstance(ctx, "i-2"))

	inst, _ := c.Get("i-1")
	assert.Equal(t, fleet.StateStopping, inst.State)

	_, err := c.ListInstances(ctx, fleet.Filter{})
	require.NoError(t, err)

	inst, _ = c.Get("i-1")
	assert.Equal(t, fleet.StateStopped, inst.State)
	inst, _ = c.Get("i-2")
	assert.Equal(t, fleet.StateRunning, inst.State)

	err = c.RebootInstance(ctx, "i-1")
	assert.Equal(t, "IncorrectInstanceState", fleet.ProviderCode(err))
	assert.NoError(t, c.RebootInstance(ctx, "i-2"))
}

func TestTerminateInstance(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testutil.NewInstance("i-1").Running().Build())
	c.Add(testutil.NewInstance("i-2").Running().Build())
	ctx := testutil.TestContext(t)

	require.NoError(t, c.ModifyAttribute(ctx, "i-2", fleet.AttrDisableAPITermination, true))
	require.NoError(t, c.TerminateInstance(ctx, "i-1"))
	err := c.TerminateInstance(ctx, "i-2")
	assert.Equal(t, "OperationNotPermitted", fleet.ProviderCode(err))

	got, err := c.ListInstances(ctx, fleet.Filter{IDs: []string{"i-1", "i-2"}})
	require.NoError(t, err)
	assert.Equal(t, fleet.StateTerminated, got[0].State)
	assert.True(t, got[1].DisableAPITermination)

	require.NoError(t, c.TerminateInstance(ctx, "i-1"))
	assert.True(t, fleet.IsNotFound(c.TerminateInstance(ctx, "i-9")))
}

func TestAttributes_MultipleInterfaces(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testutil.NewInstance("i-1").Running().InVPC("vpc-1").WithInterfaces("eni-1", "eni-2").Build())
	c.Add(testutil.NewInstance("i-2").Running().InVPC("vpc-1").WithInterfaces("eni-3").Build())
	ctx := testutil.TestContext(t)

	err := c.ModifyAttribute(ctx, "i-1", fleet.AttrSourceDestCheck, false)
	assert.True(t, fleet.IsMultipleInterfaces(err))

	require.NoError(t, c.ModifyInterfaceAttribute(ctx, "eni-1", fleet.AttrSourceDestCheck, false))
	live, err := c.GetAttribute(ctx, "i-1", fleet.AttrSourceDestCheck)
	require.NoError(t, err)
	assert.False(t, live)

	require.NoError(t, c.ModifyAttribute(ctx, "i-2", fleet.AttrSourceDestCheck, false))
	inst, _ := c.Get("i-2")
	assert.False(t, inst.SourceDestCheck)
	assert.False(t, inst.NetworkInterfaces[0].SourceDestCheck)

	assert.True(t, fleet.IsNotFound(c.ModifyInterfaceAttribute(ctx, "eni-9", fleet.AttrSourceDestCheck, true)))
	assert.True(t, fleet.IsUnsupported(c.ModifyInterfaceAttribute(ctx, "eni-1", fleet.AttrDisableAPITermination, true)))
}

func TestCreateTagsAndSnapshots(t *testing.T) {
	t.Parallel()

	c := New()
	c.Add(testutil.NewInstance("i-1").Running().WithTag("role", "web").Build())
	c.SetSnapshot("snap-1", 8)
	ctx := testutil.TestContext(t)

	require.NoError(t, c.CreateTags(ctx, []string{"i-1"}, map[string]string{"role": "db", "env": "prod"}))
	inst, _ := c.Get("i-1")
	assert.Equal(t, map[string]string{"role": "db", "env": "prod"}, inst.Tags)
	assert.True(t, fleet.IsNotFound(c.CreateTags(ctx, []string{"i-9"}, map[string]string{"a": "b"})))

	size, err := c.SnapshotSize(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, int32(8), size)
	_, err = c.SnapshotSize(ctx, "snap-2")
	assert.Error(t, err)
}

func TestSpotRequests(t *testing.T) {
	t.Parallel()

	c := New(WithSpotFulfillment(2))
	ctx := testutil.TestContext(t)

	requests, err := c.RequestSpotInstances(ctx, fleet.SpotOptions{Price: "0.1"}, launchSpec(2))
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, fleet.SpotStateOpen, requests[0].State)

	require.NoError(t, c.CloseSpotRequest(requests[1].ID, fleet.SpotStateClosed, fleet.SpotStatusTerminatedByUser))

	got, err := c.ListSpotRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, got[0].InstanceID)

	got, err = c.ListSpotRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, fleet.SpotStateActive, got[0].State)
	require.NotEmpty(t, got[0].InstanceID)
	assert.Equal(t, fleet.SpotStateClosed, got[1].State)
	assert.Empty(t, got[1].InstanceID)

	inst, ok := c.Get(got[0].InstanceID)
	require.True(t, ok)
	assert.Equal(t, fleet.StatePending, inst.State)

	_, err = c.RequestSpotInstances(ctx, fleet.SpotOptions{}, launchSpec(1))
	assert.Error(t, err)
	assert.True(t, fleet.IsNotFound(c.CloseSpotRequest("sir-missing", fleet.SpotStateFailed, "bad-parameters")))
}
