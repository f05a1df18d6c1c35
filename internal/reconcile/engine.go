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

// Result is the payload reported for one invocation.
type Result struct {
	Changed         bool             `json:"changed"`
	InstanceIDs     []string         `json:"instance_ids"`
	Instances       []fleet.Instance `json:"instances"`
	TaggedInstances []fleet.Instance `json:"tagged_instances"`
	SpotRequestIDs  []string         `json:"spot_request_ids,omitempty"`
}

// Engine dispatches one invocation to the component for the requested state.
type Engine struct {
	api      fleet.API
	clock    poll.Clock
	timeouts *config.Timeouts
	metrics  *Metrics

	query       *Query
	states      *StateWaiter
	provisioner *Provisioner
	terminator  *Terminator
	lifecycle   *Lifecycle
	counter     *CountReconciler
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used by every wait. Defaults to the wall clock.
func WithClock(c poll.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTimeouts sets the poll timings. Defaults to config.LoadTimeouts().
func WithTimeouts(t *config.Timeouts) Option {
	return func(e *Engine) {
		e.timeouts = t
	}
}

// WithMetrics records engine and API metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine over api.
func New(api fleet.API, opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = poll.NewRealClock()
	}
	if e.timeouts == nil {
		e.timeouts = config.LoadTimeouts()
	}
	e.api = e.metrics.InstrumentAPI(api)

	e.query = NewQuery(e.api)
	e.states = NewStateWaiter(e.api, e.clock, e.timeouts, e.metrics)
	e.provisioner = NewProvisioner(e.api, e.clock, e.timeouts, e.metrics)
	e.terminator = NewTerminator(e.api, e.clock, e.states, e.metrics)
	e.lifecycle = NewLifecycle(e.api, e.clock, e.states, e.metrics)
	e.counter = NewCountReconciler(e.query, e.provisioner, e.terminator, e.metrics)
	return e
}

// Run validates params and reconciles the fleet towards them. params is not
// modified. At most one terminal error is returned; partial progress is
// not rolled back.
func (e *Engine) Run(ctx context.Context, params *config.Params) (res *Result, err error) {
	p := *params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ApplyDefaults()

	logger := log.FromContext(ctx).WithValues("state", p.State)
	ctx = log.IntoContext(ctx, logger)

	start := time.Now()
	defer func() {
		e.metrics.recordReconcile(string(p.State), err, time.Since(start))
	}()

	logger.V(1).Info("starting reconciliation", "params", p.String())

	switch p.State {
	case config.StateAbsent:
		tr, err := e.terminator.Terminate(ctx, p.InstanceIDs, p.Wait, p.WaitDuration())
		if err != nil {
			return nil, err
		}
		return newResult(tr.Changed, tr.IDs, tr.Instances, nil), nil

	case config.StateRunning, config.StateStopped:
		target := fleet.StateRunning
		if p.State == config.StateStopped {
			target = fleet.StateStopped
		}
		lr, err := e.lifecycle.SetState(ctx, e.selection(&p), target, p.Desired(), p.Wait, p.WaitDuration())
		if err != nil {
			return nil, err
		}
		return newResult(lr.Changed, lr.IDs, lr.Instances, nil), nil

	case config.StateRestarted:
		lr, err := e.lifecycle.Restart(ctx, e.selection(&p), p.Desired())
		if err != nil {
			return nil, err
		}
		return newResult(lr.Changed, lr.IDs, lr.Instances, nil), nil

	case config.StatePresent:
		preq := e.provisionRequest(&p)
		if p.ExactCount == nil {
			pr, err := e.provisioner.Provision(ctx, preq)
			if err != nil {
				return nil, err
			}
			r := newResult(pr.Changed, pr.IDs, pr.Instances, nil)
			r.SpotRequestIDs = pr.SpotRequestIDs
			return r, nil
		}
		cr, err := e.counter.Enforce(ctx, CountRequest{
			ExactCount:  *p.ExactCount,
			CountTag:    p.CountTag,
			Zone:        p.Zone,
			Provision:   preq,
			Wait:        p.Wait,
			WaitTimeout: p.WaitDuration(),
		})
		if err != nil {
			return nil, err
		}
		return newResult(cr.Changed, cr.IDs, cr.Instances, cr.Tagged), nil
	}
	return nil, fmt.Errorf("unsupported state %q", p.State)
}

func (e *Engine) selection(p *config.Params) Selection {
	return Selection{IDs: p.InstanceIDs, Tags: p.SelectionTags()}
}

func (e *Engine) provisionRequest(p *config.Params) ProvisionRequest {
	count := 0
	if p.Count != nil {
		count = *p.Count
	}
	req := ProvisionRequest{
		Spec:            p.LaunchSpec(count),
		Tags:            p.InstanceTags,
		Desired:         p.Desired(),
		Wait:            p.Wait,
		WaitTimeout:     p.WaitDuration(),
		SpotWaitTimeout: p.SpotWaitDuration(),
	}
	if p.IsSpot() {
		bid := p.SpotOptions()
		req.Spot = &bid
	}
	return req
}

// newResult builds a Result whose lists encode as [] rather than null.
func newResult(changed bool, ids []string, instances, tagged []fleet.Instance) *Result {
	if ids == nil {
		ids = []string{}
	}
	if instances == nil {
		instances = []fleet.Instance{}
	}
	if tagged == nil {
		tagged = []fleet.Instance{}
	}
	return &Result{Changed: changed, InstanceIDs: ids, Instances: instances, TaggedInstances: tagged}
}
