package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	testutil "github.com/imamik/fleetctl/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRun_ExactCountWithoutCountTag(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	e, _ := newTestEngine(api)

	_, err := e.Run(testutil.TestContext(t), &config.Params{
		State:      config.StatePresent,
		Image:      "ami-1",
		ExactCount: testutil.IntPtr(5),
	})
	require.Error(t, err)
	assert.True(t, fleet.IsKind(err, fleet.KindValidation))
	assert.Empty(t, api.Calls)
}

func TestRun_PresentWithoutWait(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("CreateInstances", mock.Anything, mock.MatchedBy(func(s fleet.LaunchSpec) bool {
		return s.Count == 2 && s.ImageID == "ami-1" && s.Tenancy == config.DefaultTenancy
	})).Return(testutil.Instances(fleet.StatePending, "i-1", "i-2"), nil)
	api.On("ListInstances", mock.Anything, byIDs("i-1", "i-2")).
		Return(testutil.Instances(fleet.StatePending, "i-1", "i-2"), nil)

	e, clock := newTestEngine(api)
	params := &config.Params{
		State:        config.StatePresent,
		Image:        "ami-1",
		InstanceType: "m1.small",
		Count:        testutil.IntPtr(2),
	}

	res, err := e.Run(testutil.TestContext(t), params)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"i-1", "i-2"}, res.InstanceIDs)
	assert.Empty(t, res.TaggedInstances)
	assert.Empty(t, clock.Sleeps())

	// Defaults are applied to a copy.
	assert.Nil(t, params.SourceDestCheck)
	assert.Zero(t, params.WaitTimeout)
}

func TestRun_ExactCount(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byRunningTag()).
		Return(testutil.Instances(fleet.StateRunning, "i-1", "i-2"), nil)

	e, _ := newTestEngine(api)
	res, err := e.Run(testutil.TestContext(t), &config.Params{
		State:      config.StatePresent,
		Image:      "ami-1",
		ExactCount: testutil.IntPtr(2),
		CountTag:   fleet.Exists("role"),
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, []string{"i-1", "i-2"}, fleet.IDs(res.TaggedInstances))
	assert.Empty(t, res.InstanceIDs)
}

func TestRun_Absent(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-1")).
		Return(testutil.Instances(fleet.StateRunning, "i-1"), nil)
	api.On("TerminateInstance", mock.Anything, "i-1").Return(nil)

	e, _ := newTestEngine(api)
	res, err := e.Run(testutil.TestContext(t), &config.Params{
		State:       config.StateAbsent,
		InstanceIDs: config.StringList{"i-1"},
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"i-1"}, res.InstanceIDs)
}

func TestRun_RestartedByTags(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, mock.MatchedBy(func(f fleet.Filter) bool {
		return f.Tags.Matches(map[string]string{"role": "web"}) && !f.Tags.Matches(nil)
	})).Return(testutil.Instances(fleet.StateRunning, "i-1"), nil)
	api.On("RebootInstance", mock.Anything, "i-1").Return(nil)

	e, _ := newTestEngine(api)
	res, err := e.Run(testutil.TestContext(t), &config.Params{
		State:        config.StateRestarted,
		InstanceTags: map[string]string{"role": "web"},
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"i-1"}, res.InstanceIDs)
}

func TestResult_JSONLists(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(newResult(false, nil, nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"changed":false,"instance_ids":[],"instances":[],"tagged_instances":[]}`, string(out))
}

func TestRun_RunningLeavesSourceDestCheckAlone(t *testing.T) {
	t.Parallel()

	nat := testutil.NewInstance("i-nat").Running().InVPC("vpc-1").Build()
	nat.SourceDestCheck = false

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-nat")).Return([]fleet.Instance{nat}, nil)

	e, _ := newTestEngine(api)
	res, err := e.Run(testutil.TestContext(t), &config.Params{
		State:       config.StateRunning,
		InstanceIDs: config.StringList{"i-nat"},
	})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, []string{"i-nat"}, res.InstanceIDs)
	api.AssertNotCalled(t, "GetAttribute", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, api.MutatingCalls())
}

func TestRun_RunningAppliesExplicitSourceDestCheck(t *testing.T) {
	t.Parallel()

	nat := testutil.NewInstance("i-nat").Running().InVPC("vpc-1").Build()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-nat")).Return([]fleet.Instance{nat}, nil)
	api.On("GetAttribute", mock.Anything, "i-nat", fleet.AttrSourceDestCheck).Return(true, nil)
	api.On("ModifyAttribute", mock.Anything, "i-nat", fleet.AttrSourceDestCheck, false).Return(nil)

	e, _ := newTestEngine(api)
	res, err := e.Run(testutil.TestContext(t), &config.Params{
		State:           config.StateRunning,
		InstanceIDs:     config.StringList{"i-nat"},
		SourceDestCheck: testutil.BoolPtr(false),
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	api.AssertExpectations(t)
}
