package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/imamik/fleetctl/internal/fleet"
)

// ListInstances advances the simulation one step and returns the visible
// instances matching filter, in creation order. Unknown ids fail the whole
// call with a not-found error.
func (s *Cloud) ListInstances(ctx context.Context, filter fleet.Filter) ([]fleet.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick()

	for _, id := range filter.IDs {
		if _, err := s.find(id); err != nil {
			return nil, err
		}
	}

	var out []fleet.Instance
	for _, id := range s.order {
		inst := s.instances[id]
		if inst.hidden > 0 || !filter.Matches(inst.Instance) {
			continue
		}
		c := inst.Clone()
		c.DisableAPITermination = inst.terminationProtection
		out = append(out, c)
	}
	return out, nil
}

// CreateInstances launches spec.Count pending instances. A client token
// already used returns the instances launched with it instead.
func (s *Cloud) CreateInstances(ctx context.Context, spec fleet.LaunchSpec) ([]fleet.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec.ImageID == "" {
		return nil, &fleet.APIError{ProviderCode: "MissingParameter", Message: "The request must contain the parameter ImageId"}
	}
	if spec.Count < 1 {
		return nil, &fleet.APIError{ProviderCode: "InvalidParameterValue", Message: fmt.Sprintf("invalid count %d", spec.Count)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if spec.ClientToken != "" {
		var replay []fleet.Instance
		for _, id := range s.order {
			if inst := s.instances[id]; inst.ClientToken == spec.ClientToken {
				replay = append(replay, inst.Clone())
			}
		}
		if len(replay) > 0 {
			return replay, nil
		}
	}

	out := make([]fleet.Instance, 0, spec.Count)
	for range spec.Count {
		out = append(out, s.launch(spec).Clone())
	}
	return out, nil
}

// TerminateInstance moves an instance to shutting-down. Protected
// instances are refused.
func (s *Cloud) TerminateInstance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.find(id)
	if err != nil {
		return err
	}
	if inst.terminationProtection {
		return &fleet.APIError{
			ProviderCode: "OperationNotPermitted",
			Message:      fmt.Sprintf("The instance '%s' may not be terminated", id),
		}
	}
	if inst.State == fleet.StateShuttingDown || inst.State == fleet.StateTerminated {
		return nil
	}
	s.transition(inst, fleet.StateShuttingDown)
	return nil
}

// StartInstance starts a stopped instance.
func (s *Cloud) StartInstance(ctx context.Context, id string) error {
	return s.power(id, fleet.StatePending, fleet.StateStopped)
}

// StopInstance stops a running instance.
func (s *Cloud) StopInstance(ctx context.Context, id string) error {
	return s.power(id, fleet.StateStopping, fleet.StateRunning, fleet.StatePending)
}

// RebootInstance reboots a running instance in place.
func (s *Cloud) RebootInstance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.find(id)
	if err != nil {
		return err
	}
	if inst.State != fleet.StateRunning {
		return incorrectState(inst)
	}
	return nil
}

func (s *Cloud) power(id string, next fleet.State, from ...fleet.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.find(id)
	if err != nil {
		return err
	}
	if inst.State == next || inst.State == targetOf(next) {
		return nil
	}
	if !slices.Contains(from, inst.State) {
		return incorrectState(inst)
	}
	s.transition(inst, next)
	return nil
}

func targetOf(state fleet.State) fleet.State {
	switch state {
	case fleet.StatePending:
		return fleet.StateRunning
	case fleet.StateStopping:
		return fleet.StateStopped
	case fleet.StateShuttingDown:
		return fleet.StateTerminated
	}
	return state
}

func incorrectState(inst *instance) *fleet.APIError {
	return &fleet.APIError{
		ProviderCode: "IncorrectInstanceState",
		Message:      fmt.Sprintf("The instance '%s' is not in a state from which it can be changed (%s)", inst.ID, inst.State),
	}
}

// CreateTags adds or overwrites tags on every instance.
func (s *Cloud) CreateTags(ctx context.Context, ids []string, tags map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]*instance, 0, len(ids))
	for _, id := range ids {
		inst, err := s.find(id)
		if err != nil {
			return err
		}
		targets = append(targets, inst)
	}
	for _, inst := range targets {
		maps.Copy(inst.Tags, tags)
	}
	return nil
}

// SnapshotSize returns the size of a registered snapshot.
func (s *Cloud) SnapshotSize(ctx context.Context, snapshotID string) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	size, ok := s.snapshots[snapshotID]
	if !ok {
		return 0, &fleet.APIError{
			Code:         fleet.CodeInstanceNotFound,
			ProviderCode: "InvalidSnapshot.NotFound",
			Message:      fmt.Sprintf("The snapshot '%s' does not exist", snapshotID),
		}
	}
	return size, nil
}
