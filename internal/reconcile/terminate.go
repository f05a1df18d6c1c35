package reconcile

import (
	"context"
	"time"

	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/util/poll"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const opTerminate = "terminate"

// TerminateResult is the outcome of a termination run.
type TerminateResult struct {
	// Instances are the records of the terminated instances. After a wait
	// they are re-read so they carry their final state.
	Instances []fleet.Instance
	IDs       []string
	Changed   bool
}

// Terminator terminates instances by id.
type Terminator struct {
	api     fleet.API
	clock   poll.Clock
	query   *Query
	states  *StateWaiter
	metrics *Metrics
}

// NewTerminator creates a Terminator sharing the waiter of the engine.
func NewTerminator(api fleet.API, clock poll.Clock, states *StateWaiter, metrics *Metrics) *Terminator {
	return &Terminator{api: api, clock: clock, query: NewQuery(api), states: states, metrics: metrics}
}

// Terminate terminates every running or stopped instance among ids. With
// wait set it blocks until they report terminated and re-reads them.
func (t *Terminator) Terminate(ctx context.Context, ids []string, wait bool, timeout time.Duration) (*TerminateResult, error) {
	if len(ids) == 0 {
		return nil, fleet.Errorf(fleet.KindValidation, opTerminate, "instance_ids should be a list of instances, aborting")
	}
	logger := log.FromContext(ctx).WithValues("op", opTerminate)

	instances, err := t.query.ByIDs(ctx, ids, fleet.TagFilter{})
	if err != nil {
		return nil, fleet.Wrap(fleet.KindTermination, opTerminate, err, ids...)
	}

	result := &TerminateResult{}
	for _, inst := range instances {
		if inst.State != fleet.StateRunning && inst.State != fleet.StateStopped {
			continue
		}
		result.IDs = append(result.IDs, inst.ID)
		result.Instances = append(result.Instances, inst)
		if err := t.api.TerminateInstance(ctx, inst.ID); err != nil {
			e := fleet.Wrap(fleet.KindTermination, opTerminate, err, inst.ID)
			e.Msg = "unable to terminate instance"
			return nil, e
		}
		logger.Info("terminating instance", "instance", inst.ID, "state", inst.State)
		result.Changed = true
	}
	t.metrics.recordChange("terminated", len(result.IDs))

	if !wait || len(result.IDs) == 0 {
		return result, nil
	}

	if _, err := t.states.AwaitState(ctx, result.IDs, fleet.StateTerminated, poll.Deadline(t.clock, timeout)); err != nil {
		return nil, err
	}
	final, err := t.query.Find(ctx, fleet.Filter{IDs: result.IDs, States: []fleet.State{fleet.StateTerminated}})
	if err != nil {
		return nil, fleet.Wrap(fleet.KindTermination, opTerminate, err, result.IDs...)
	}
	result.Instances = final
	return result, nil
}
