package reconcile

import (
	"context"
	"slices"
	"time"

	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/util/poll"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Selection picks existing instances. When both fields are set the
// intersection is used; an empty tag filter does not narrow.
type Selection struct {
	IDs  []string
	Tags fleet.TagFilter
}

// IsZero reports whether nothing would be selected explicitly.
func (s Selection) IsZero() bool {
	return len(s.IDs) == 0 && s.Tags.IsZero()
}

// LifecycleResult is the outcome of a start, stop or restart run.
type LifecycleResult struct {
	// Instances are the instances whose state was changed, or after a
	// wait, every selected instance in the target state.
	Instances []fleet.Instance
	IDs       []string
	Changed   bool
}

// Lifecycle starts, stops and reboots existing instances.
type Lifecycle struct {
	api        fleet.API
	clock      poll.Clock
	query      *Query
	states     *StateWaiter
	attributes *AttributeReconciler
	metrics    *Metrics
}

// NewLifecycle creates a Lifecycle sharing the waiter of the engine.
func NewLifecycle(api fleet.API, clock poll.Clock, states *StateWaiter, metrics *Metrics) *Lifecycle {
	return &Lifecycle{
		api:        api,
		clock:      clock,
		query:      NewQuery(api),
		states:     states,
		attributes: NewAttributeReconciler(api),
		metrics:    metrics,
	}
}

// SetState reconciles attributes of the selected instances, then starts or
// stops those not yet in target. With wait set it blocks until every
// selected id is in target.
func (l *Lifecycle) SetState(
	ctx context.Context,
	sel Selection,
	target fleet.State,
	desired fleet.DesiredAttributes,
	wait bool,
	timeout time.Duration,
) (*LifecycleResult, error) {
	op := "set state " + string(target)
	if target != fleet.StateRunning && target != fleet.StateStopped {
		return nil, fleet.Errorf(fleet.KindValidation, op, "target state must be running or stopped")
	}

	instances, result, err := l.apply(ctx, op, sel, desired, func(inst fleet.Instance) (bool, error) {
		if inst.State == target {
			return false, nil
		}
		if target == fleet.StateRunning {
			return true, l.api.StartInstance(ctx, inst.ID)
		}
		return true, l.api.StopInstance(ctx, inst.ID)
	})
	if err != nil {
		return nil, err
	}
	if target == fleet.StateRunning {
		l.metrics.recordChange("started", len(result.Instances))
	} else {
		l.metrics.recordChange("stopped", len(result.Instances))
	}

	ids := fleet.IDs(instances)
	for _, id := range sel.IDs {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	result.IDs = ids

	if !wait || len(ids) == 0 {
		return result, nil
	}
	matched, err := l.states.AwaitState(ctx, ids, target, poll.Deadline(l.clock, timeout))
	if err != nil {
		return nil, err
	}
	result.Instances = matched
	return result, nil
}

// Restart reconciles attributes and reboots every selected instance. It never
// waits: a reboot has no externally observable state distinct from running.
func (l *Lifecycle) Restart(ctx context.Context, sel Selection, desired fleet.DesiredAttributes) (*LifecycleResult, error) {
	instances, result, err := l.apply(ctx, "restart", sel, desired, func(inst fleet.Instance) (bool, error) {
		return true, l.api.RebootInstance(ctx, inst.ID)
	})
	if err != nil {
		return nil, err
	}
	l.metrics.recordChange("rebooted", len(result.Instances))
	result.IDs = fleet.IDs(instances)
	return result, nil
}

// apply selects instances, reconciles their attributes and runs transition
// on each. It returns every selected instance plus a result holding the
// ones transition acted on.
func (l *Lifecycle) apply(
	ctx context.Context,
	op string,
	sel Selection,
	desired fleet.DesiredAttributes,
	transition func(fleet.Instance) (bool, error),
) ([]fleet.Instance, *LifecycleResult, error) {
	if sel.IsZero() {
		return nil, nil, fleet.Errorf(fleet.KindValidation, op, "instance_ids should be a list of instances or a set of tags, aborting")
	}
	if err := checkAttributeSupport(op, l.api.Capabilities(), desired, false); err != nil {
		return nil, nil, err
	}
	logger := log.FromContext(ctx).WithValues("op", op)

	instances, err := l.query.ByIDs(ctx, sel.IDs, sel.Tags)
	if err != nil {
		return nil, nil, fleet.Wrap(fleet.KindStateChange, op, err, sel.IDs...)
	}

	result := &LifecycleResult{}
	for _, inst := range instances {
		changed, err := l.attributes.Reconcile(ctx, inst, desired)
		if err != nil {
			return nil, nil, err
		}
		result.Changed = result.Changed || changed

		acted, err := transition(inst)
		if err != nil {
			e := fleet.Wrap(fleet.KindStateChange, op, err, inst.ID)
			e.Msg = "unable to change state for instance"
			return nil, nil, e
		}
		if acted {
			logger.Info("changing instance state", "instance", inst.ID, "from", inst.State)
			result.Instances = append(result.Instances, inst)
			result.Changed = true
		}
	}
	return instances, result, nil
}
