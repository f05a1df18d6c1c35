package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/util/poll"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// StateWaiter polls a set of instance ids until they reach a lifecycle state.
type StateWaiter struct {
	api      fleet.API
	clock    poll.Clock
	timeouts *config.Timeouts
	metrics  *Metrics
}

// NewStateWaiter creates a StateWaiter.
func NewStateWaiter(api fleet.API, clock poll.Clock, timeouts *config.Timeouts, metrics *Metrics) *StateWaiter {
	return &StateWaiter{api: api, clock: clock, timeouts: timeouts, metrics: metrics}
}

// AwaitState blocks until every id is in target state or the deadline
// passes. An empty result or a not-found error is treated as provider cache
// staleness and retried after a short backoff. The returned instances are
// those in target state.
func (w *StateWaiter) AwaitState(ctx context.Context, ids []string, target fleet.State, deadline time.Time) ([]fleet.Instance, error) {
	op := fmt.Sprintf("await %s", target)
	want := uniqueCount(ids)
	return w.poll(ctx, op, ids, deadline, func(instances []fleet.Instance) ([]fleet.Instance, bool) {
		matched := make([]fleet.Instance, 0, len(instances))
		for _, inst := range instances {
			if inst.State == target {
				matched = append(matched, inst)
			}
		}
		return matched, len(matched) >= want
	})
}

// Observe performs one substantive read of ids, tolerating empty results and
// not-found errors until the deadline. It is used when the caller did not
// ask to wait.
func (w *StateWaiter) Observe(ctx context.Context, ids []string, deadline time.Time) ([]fleet.Instance, error) {
	return w.poll(ctx, "observe", ids, deadline, func(instances []fleet.Instance) ([]fleet.Instance, bool) {
		return instances, true
	})
}

func (w *StateWaiter) poll(
	ctx context.Context,
	op string,
	ids []string,
	deadline time.Time,
	done func([]fleet.Instance) ([]fleet.Instance, bool),
) ([]fleet.Instance, error) {
	logger := log.FromContext(ctx).WithValues("op", op, "instances", len(ids))
	if len(ids) == 0 {
		return nil, nil
	}

	// The first read always happens, even past the deadline.
	for attempt := 1; ; attempt++ {
		if attempt > 1 && poll.Expired(w.clock, deadline) {
			return nil, fleet.TimeoutError(op, deadline, ids)
		}

		instances, err := w.api.ListInstances(ctx, fleet.Filter{IDs: ids})
		w.metrics.recordPoll(op)
		delay := w.timeouts.PollInterval
		switch {
		case fleet.IsNotFound(err):
			logger.V(1).Info("instances not visible yet", "attempt", attempt)
			delay = w.timeouts.EmptyPollBackoff
		case err != nil:
			return nil, fmt.Errorf("%s: failed to list instances: %w", op, err)
		case len(instances) == 0:
			logger.V(1).Info("empty poll result, retrying", "attempt", attempt)
			delay = w.timeouts.EmptyPollBackoff
		default:
			matched, ok := done(instances)
			if ok {
				return matched, nil
			}
			logger.V(1).Info("waiting for instances", "matched", len(matched), "attempt", attempt)
		}

		if err := w.clock.Sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
}

func uniqueCount(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
