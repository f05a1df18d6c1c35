package reconcile

import (
	"context"
	"slices"
	"time"

	"github.com/imamik/fleetctl/internal/fleet"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const opEnforceCount = "enforce count"

// CountRequest is the desired fleet size for a tag scope.
type CountRequest struct {
	ExactCount int
	CountTag   fleet.TagFilter
	Zone       string
	// Provision is used for the shortfall; its Spec.Count is overwritten.
	Provision   ProvisionRequest
	Wait        bool
	WaitTimeout time.Duration
}

// CountResult is the outcome of one count enforcement.
type CountResult struct {
	// Tagged is the running set after reconciliation.
	Tagged []fleet.Instance
	// Instances are the created instances, or the terminated ones reported
	// in state terminated.
	Instances []fleet.Instance
	IDs       []string
	Changed   bool
}

// CountReconciler drives exact fleet size mode.
type CountReconciler struct {
	query       *Query
	provisioner *Provisioner
	terminator  *Terminator
	metrics     *Metrics
}

// NewCountReconciler creates a CountReconciler.
func NewCountReconciler(query *Query, provisioner *Provisioner, terminator *Terminator, metrics *Metrics) *CountReconciler {
	return &CountReconciler{query: query, provisioner: provisioner, terminator: terminator, metrics: metrics}
}

// Enforce makes the number of running instances matching CountTag in Zone
// equal ExactCount. It creates or terminates, never both. Surplus instances
// are removed in ascending id order so reruns converge.
func (c *CountReconciler) Enforce(ctx context.Context, req CountRequest) (*CountResult, error) {
	if req.CountTag.IsZero() {
		return nil, fleet.Errorf(fleet.KindValidation, opEnforceCount, "you must use the 'count_tag' option with exact_count")
	}
	if req.ExactCount < 0 {
		return nil, fleet.Errorf(fleet.KindValidation, opEnforceCount, "exact_count must not be negative")
	}
	logger := log.FromContext(ctx).WithValues("op", opEnforceCount, "count_tag", req.CountTag.String())

	running, err := c.query.RunningByTag(ctx, req.CountTag, req.Zone)
	if err != nil {
		return nil, err
	}
	c.metrics.recordFleetSize(req.ExactCount, len(running))

	switch {
	case len(running) == req.ExactCount:
		logger.Info("fleet size matches", "count", len(running))
		return &CountResult{Tagged: running}, nil

	case len(running) < req.ExactCount:
		shortfall := req.ExactCount - len(running)
		if !req.CountTag.Matches(req.Provision.Tags) {
			logger.Info("instance_tags do not satisfy count_tag, new instances will not be counted on the next run",
				"instance_tags", req.Provision.Tags)
		}
		logger.Info("creating instances", "running", len(running), "desired", req.ExactCount, "create", shortfall)

		preq := req.Provision
		preq.Spec.Count = int32(shortfall)
		res, err := c.provisioner.Provision(ctx, preq)
		if err != nil {
			return nil, err
		}
		tagged := slices.Clone(running)
		for _, inst := range res.Instances {
			if !slices.ContainsFunc(tagged, func(t fleet.Instance) bool { return t.ID == inst.ID }) {
				tagged = append(tagged, inst)
			}
		}
		return &CountResult{Tagged: tagged, Instances: res.Instances, IDs: res.IDs, Changed: res.Changed}, nil

	default:
		surplus := len(running) - req.ExactCount
		ids := fleet.IDs(running)
		slices.Sort(ids)
		remove := ids[:surplus]
		logger.Info("terminating surplus instances", "running", len(running), "desired", req.ExactCount, "remove", remove)

		tagged := slices.DeleteFunc(slices.Clone(running), func(inst fleet.Instance) bool {
			return slices.Contains(remove, inst.ID)
		})
		res, err := c.terminator.Terminate(ctx, remove, req.Wait, req.WaitTimeout)
		if err != nil {
			return nil, err
		}
		terminated := make([]fleet.Instance, 0, len(res.Instances))
		for _, inst := range res.Instances {
			inst.State = fleet.StateTerminated
			terminated = append(terminated, inst)
		}
		return &CountResult{Tagged: tagged, Instances: terminated, IDs: res.IDs, Changed: res.Changed}, nil
	}
}
