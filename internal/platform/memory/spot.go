package memory

import (
	"context"

	"github.com/imamik/fleetctl/internal/fleet"
)

// RequestSpotInstances opens spec.Count spot requests. Each is fulfilled
// with a pending instance after the configured number of polls.
func (s *Cloud) RequestSpotInstances(ctx context.Context, bid fleet.SpotOptions, spec fleet.LaunchSpec) ([]fleet.SpotRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bid.Price == "" {
		return nil, &fleet.APIError{ProviderCode: "MissingParameter", Message: "The request must contain the parameter SpotPrice"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fleet.SpotRequest, 0, spec.Count)
	for range spec.Count {
		r := &spotRequest{
			SpotRequest: fleet.SpotRequest{
				ID:         newID("sir-", 8),
				State:      fleet.SpotStateOpen,
				StatusCode: "pending-evaluation",
			},
			spec:      spec,
			remaining: s.spotSteps,
		}
		s.spot[r.ID] = r
		s.spotOrder = append(s.spotOrder, r.ID)
		out = append(out, r.SpotRequest)
	}
	return out, nil
}

// ListSpotRequests advances open requests one step and returns every
// request in submission order.
func (s *Cloud) ListSpotRequests(ctx context.Context) ([]fleet.SpotRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fleet.SpotRequest, 0, len(s.spotOrder))
	for _, id := range s.spotOrder {
		r := s.spot[id]
		if r.State == fleet.SpotStateOpen {
			r.remaining--
			if r.remaining <= 0 {
				spec := r.spec
				spec.ClientToken = ""
				inst := s.launch(spec)
				r.InstanceID = inst.ID
				r.State = fleet.SpotStateActive
				r.StatusCode = "fulfilled"
			}
		}
		out = append(out, r.SpotRequest)
	}
	return out, nil
}
