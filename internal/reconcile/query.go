package reconcile

import (
	"context"
	"fmt"

	"github.com/imamik/fleetctl/internal/fleet"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Query executes filtered instance reads. It never retries and never mutates.
type Query struct {
	api fleet.API
}

// NewQuery creates a Query over api.
func NewQuery(api fleet.API) *Query {
	return &Query{api: api}
}

// Find returns every instance matching filter.
func (q *Query) Find(ctx context.Context, filter fleet.Filter) ([]fleet.Instance, error) {
	if keys := filter.Tags.UnfilterableKeys(); len(keys) > 0 {
		log.FromContext(ctx).Info("tag keys containing underscores may not be filterable by the provider", "keys", keys)
	}
	instances, err := q.api.ListInstances(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return instances, nil
}

// RunningByTag returns running instances matching tags, optionally scoped to a zone.
func (q *Query) RunningByTag(ctx context.Context, tags fleet.TagFilter, zone string) ([]fleet.Instance, error) {
	return q.Find(ctx, fleet.Filter{
		Tags:   tags,
		States: []fleet.State{fleet.StateRunning},
		Zone:   zone,
	})
}

// RunningByToken returns running instances launched with the client token.
func (q *Query) RunningByToken(ctx context.Context, token string) ([]fleet.Instance, error) {
	return q.Find(ctx, fleet.Filter{
		ClientToken: token,
		States:      []fleet.State{fleet.StateRunning},
	})
}

// ByIDs returns the instances with the given ids that also match tags.
func (q *Query) ByIDs(ctx context.Context, ids []string, tags fleet.TagFilter) ([]fleet.Instance, error) {
	return q.Find(ctx, fleet.Filter{IDs: ids, Tags: tags})
}
