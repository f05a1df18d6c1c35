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

// SpotWaiter waits for spot requests to be fulfilled, or fail.
type SpotWaiter struct {
	api      fleet.API
	clock    poll.Clock
	timeouts *config.Timeouts
	metrics  *Metrics
}

// NewSpotWaiter creates a SpotWaiter.
func NewSpotWaiter(api fleet.API, clock poll.Clock, timeouts *config.Timeouts, metrics *Metrics) *SpotWaiter {
	return &SpotWaiter{api: api, clock: clock, timeouts: timeouts, metrics: metrics}
}

// Await polls until every request has left the wait set and returns the
// instance ids of the fulfilled ones, in request order.
//
// A request leaves the wait set once an instance is assigned, or when it is
// closed with status instance-terminated-by-user. The latter cannot be told
// apart from a capacity eviction reported with the same code; it is accepted
// as an operator action and yields no instance. Failed, cancelled and any
// other closed request ends the wait with a spot request error.
func (w *SpotWaiter) Await(ctx context.Context, requests []fleet.SpotRequest, deadline time.Time) ([]string, error) {
	logger := log.FromContext(ctx)

	resolved := make(map[string]string, len(requests))
	settled := make(map[string]bool, len(requests))

	pending := func() []string {
		var out []string
		for _, r := range requests {
			if _, ok := resolved[r.ID]; !ok && !settled[r.ID] {
				out = append(out, r.ID)
			}
		}
		return out
	}

	for attempt := 1; ; attempt++ {
		waiting := pending()
		if len(waiting) == 0 {
			break
		}
		if attempt > 1 && poll.Expired(w.clock, deadline) {
			return nil, fleet.TimeoutError("await spot requests", deadline, waiting)
		}

		current, err := w.api.ListSpotRequests(ctx)
		w.metrics.recordPoll("await spot requests")
		if err != nil {
			return nil, fleet.Wrap(fleet.KindSpotRequest, "await spot requests", err)
		}
		byID := make(map[string]fleet.SpotRequest, len(current))
		for _, r := range current {
			byID[r.ID] = r
		}

		for _, id := range waiting {
			r, ok := byID[id]
			if !ok {
				continue
			}
			if r.InstanceID != "" {
				resolved[id] = r.InstanceID
				logger.Info("spot request fulfilled", "request", id, "instance", r.InstanceID)
				continue
			}
			switch r.State {
			case fleet.SpotStateOpen, fleet.SpotStateActive:
			case fleet.SpotStateFailed:
				return nil, spotError(r, "failed with status %s and fault %s: %s", r.StatusCode, r.FaultCode, r.FaultMessage)
			case fleet.SpotStateCancelled:
				return nil, spotError(r, "was cancelled before it could be fulfilled")
			case fleet.SpotStateClosed:
				if r.StatusCode != fleet.SpotStatusTerminatedByUser {
					return nil, spotError(r, "was closed with the status %s and fault %s: %s", r.StatusCode, r.FaultCode, r.FaultMessage)
				}
				settled[id] = true
				logger.Info("spot request closed by user termination, not waiting for it",
					"request", id, "status", r.StatusCode)
			default:
				logger.V(1).Info("unknown spot request state", "request", id, "state", r.State)
			}
		}

		if len(pending()) == 0 {
			break
		}
		logger.V(1).Info("waiting for spot requests", "pending", len(pending()), "attempt", attempt)
		if err := w.clock.Sleep(ctx, w.timeouts.SpotPollInterval); err != nil {
			return nil, fmt.Errorf("await spot requests: %w", err)
		}
	}

	ids := make([]string, 0, len(resolved))
	for _, r := range requests {
		if id, ok := resolved[r.ID]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func spotError(r fleet.SpotRequest, format string, args ...any) *fleet.Error {
	return fleet.Errorf(fleet.KindSpotRequest, "await spot requests", "spot instance request %s "+format, append([]any{r.ID}, args...)...)
}
