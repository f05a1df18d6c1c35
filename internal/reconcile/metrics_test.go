package reconcile

import (
	"errors"
	"testing"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	testutil "github.com/imamik/fleetctl/internal/testing"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.recordReconcile("present", nil, 0)
	m.recordChange("created", 1)
	m.recordPoll("observe")
	m.recordFleetSize(1, 2)
	m.recordAPICall("ListInstances", nil, 0)

	api := testutil.NewMockFleetAPI()
	assert.Same(t, api, m.InstrumentAPI(api))
}

func TestMetrics_EngineRun(t *testing.T) {
	t.Parallel()

	api := testutil.NewMockFleetAPI()
	api.On("ListInstances", mock.Anything, byIDs("i-1")).
		Return(testutil.Instances(fleet.StateRunning, "i-1"), nil)
	api.On("TerminateInstance", mock.Anything, "i-1").Return(errors.New("denied"))

	m := NewMetrics()
	e := New(api, WithClock(testutil.NewFakeClock()), WithTimeouts(config.DefaultTimeouts()), WithMetrics(m))

	_, err := e.Run(testutil.TestContext(t), &config.Params{
		State:       config.StateAbsent,
		InstanceIDs: config.StringList{"i-1"},
	})
	require.Error(t, err)

	assert.InDelta(t, 1, promtestutil.ToFloat64(m.reconcileTotal.WithLabelValues("absent", "termination")), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.apiCallsTotal.WithLabelValues("ListInstances", "success")), 0)
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.apiCallsTotal.WithLabelValues("TerminateInstance", "error")), 0)
}

func TestMetrics_FleetSize(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.recordFleetSize(3, 5)
	m.recordChange("terminated", 2)
	m.recordChange("terminated", 0)

	assert.InDelta(t, 3, promtestutil.ToFloat64(m.fleetDesired), 0)
	assert.InDelta(t, 5, promtestutil.ToFloat64(m.fleetObserved), 0)
	assert.InDelta(t, 2, promtestutil.ToFloat64(m.instanceChanges.WithLabelValues("terminated")), 0)

	n, err := promtestutil.GatherAndCount(m.Registry, "fleetctl_fleet_desired_instances")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
