package reconcile

import (
	"context"
	"time"

	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/util/poll"
	"github.com/imamik/fleetctl/internal/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const opProvision = "provision"

// ProvisionRequest describes instances to create. Spec.Count is the total
// number wanted for Spec.ClientToken, including instances already running
// with that token.
type ProvisionRequest struct {
	Spec fleet.LaunchSpec
	// Spot requests spare capacity when set.
	Spot            *fleet.SpotOptions
	Tags            map[string]string
	Desired         fleet.DesiredAttributes
	Wait            bool
	WaitTimeout     time.Duration
	SpotWaitTimeout time.Duration
}

// ProvisionResult is the outcome of a provisioning run.
type ProvisionResult struct {
	// Instances holds the instances running under the client token before
	// this run followed by the ones created by it.
	Instances      []fleet.Instance
	IDs            []string
	SpotRequestIDs []string
	Changed        bool
}

// Provisioner creates on-demand or spot instances idempotently.
type Provisioner struct {
	api        fleet.API
	clock      poll.Clock
	timeouts   *config.Timeouts
	query      *Query
	states     *StateWaiter
	spots      *SpotWaiter
	attributes *AttributeReconciler
	metrics    *Metrics
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(api fleet.API, clock poll.Clock, timeouts *config.Timeouts, metrics *Metrics) *Provisioner {
	return &Provisioner{
		api:        api,
		clock:      clock,
		timeouts:   timeouts,
		query:      NewQuery(api),
		states:     NewStateWaiter(api, clock, timeouts, metrics),
		spots:      NewSpotWaiter(api, clock, timeouts, metrics),
		attributes: NewAttributeReconciler(api),
		metrics:    metrics,
	}
}

// Provision validates the request, subtracts instances already running under
// the client token and creates the remainder. Tags are applied last.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	logger := log.FromContext(ctx).WithValues("op", opProvision)

	spec, err := prepareLaunch(ctx, p.api, &req)
	if err != nil {
		return nil, err
	}

	var existing []fleet.Instance
	remaining := spec.Count
	if spec.ClientToken != "" {
		existing, err = p.query.RunningByToken(ctx, spec.ClientToken)
		if err != nil {
			return nil, fleet.Wrap(fleet.KindProvisioning, opProvision, err)
		}
		remaining -= int32(len(existing))
	}

	result := &ProvisionResult{Instances: existing, IDs: fleet.IDs(existing)}
	if remaining <= 0 {
		logger.Info("client token already satisfied", "token", spec.ClientToken, "running", len(existing))
		return result, nil
	}
	spec.Count = remaining
	result.Changed = true

	var ids []string
	if req.Spot == nil {
		ids, err = p.createOnDemand(ctx, spec)
	} else {
		ids, result.SpotRequestIDs, err = p.requestSpot(ctx, req, spec)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return result, nil
	}

	deadline := poll.Deadline(p.clock, req.WaitTimeout)
	var created []fleet.Instance
	if req.Wait {
		created, err = p.states.AwaitState(ctx, ids, fleet.StateRunning, deadline)
	} else {
		created, err = p.states.Observe(ctx, ids, deadline)
	}
	if err != nil {
		return nil, err
	}

	// Only non-default values are enforced on fresh instances.
	post := fleet.DesiredAttributes{}
	if d := req.Desired.SourceDestCheck; d != nil && !*d {
		post.SourceDestCheck = d
	}
	if d := req.Desired.DisableAPITermination; d != nil && *d {
		post.DisableAPITermination = d
	}
	for i := range created {
		if post.IsZero() {
			break
		}
		if _, err := p.attributes.Reconcile(ctx, created[i], post); err != nil {
			return nil, err
		}
		post.Apply(&created[i])
	}

	// Tagging happens as late as possible so the ids are queryable.
	if len(req.Tags) > 0 {
		if err := p.api.CreateTags(ctx, ids, req.Tags); err != nil {
			e := fleet.Wrap(fleet.KindProvisioning, opProvision, err, ids...)
			e.Msg = "instance tagging failed"
			return nil, e
		}
		for i := range created {
			if created[i].Tags == nil {
				created[i].Tags = make(map[string]string, len(req.Tags))
			}
			for k, v := range req.Tags {
				created[i].Tags[k] = v
			}
		}
	}

	p.metrics.recordChange("created", len(ids))
	result.Instances = append(result.Instances, created...)
	result.IDs = append(result.IDs, fleet.IDs(created)...)
	logger.Info("provisioned instances", "ids", ids, "spot", req.Spot != nil)
	return result, nil
}

func (p *Provisioner) createOnDemand(ctx context.Context, spec fleet.LaunchSpec) ([]string, error) {
	launched, err := p.api.CreateInstances(ctx, spec)
	if err != nil {
		e := fleet.Wrap(fleet.KindProvisioning, opProvision, err)
		e.Msg = "instance creation failed"
		return nil, e
	}
	ids := fleet.IDs(launched)

	// Creation and queryability are not atomic.
	err = retry.WithExponentialBackoff(ctx, func() error {
		_, err := p.api.ListInstances(ctx, fleet.Filter{IDs: ids})
		return err
	},
		retry.WithClock(p.clock),
		retry.WithConstantDelay(p.timeouts.ExistenceRetryDelay),
		retry.WithMaxRetries(p.timeouts.ExistenceRetries),
		retry.WithRetryIf(fleet.IsNotFound),
		retry.WithOnRetry(func(attempt int, _ error) {
			log.FromContext(ctx).V(1).Info("created instances not visible yet", "attempt", attempt)
		}),
	)
	if err != nil {
		e := fleet.Wrap(fleet.KindProvisioning, opProvision, err, ids...)
		e.Msg = "created instances could not be read back"
		if retry.IsExhausted(err) {
			e.Msg = "created instances never became visible"
		}
		return nil, e
	}

	// A replayed client token can hand back instances that were terminated since.
	var terminated []string
	for _, inst := range launched {
		if inst.State == fleet.StateTerminated {
			terminated = append(terminated, inst.ID)
		}
	}
	if len(terminated) > 0 {
		return nil, &fleet.Error{
			Kind:        fleet.KindProvisioning,
			Op:          opProvision,
			InstanceIDs: terminated,
			Msg:         "instances were created previously but have since been terminated, use a different client token",
		}
	}
	return ids, nil
}

func (p *Provisioner) requestSpot(ctx context.Context, req ProvisionRequest, spec fleet.LaunchSpec) ([]string, []string, error) {
	requests, err := p.api.RequestSpotInstances(ctx, *req.Spot, spec)
	if err != nil {
		e := fleet.Wrap(fleet.KindProvisioning, opProvision, err)
		e.Msg = "spot instance request failed"
		return nil, nil, e
	}
	requestIDs := make([]string, 0, len(requests))
	for _, r := range requests {
		requestIDs = append(requestIDs, r.ID)
	}
	p.metrics.recordChange("spot_requested", len(requests))

	if !req.Wait {
		log.FromContext(ctx).Info("spot requests submitted, not waiting for fulfillment", "requests", requestIDs)
		return nil, requestIDs, nil
	}
	ids, err := p.spots.Await(ctx, requests, poll.Deadline(p.clock, req.SpotWaitTimeout))
	if err != nil {
		return nil, requestIDs, err
	}
	return ids, requestIDs, nil
}
