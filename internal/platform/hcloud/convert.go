package hcloud

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/imamik/fleetctl/internal/fleet"
)

var serverStates = map[hcloud.ServerStatus]fleet.State{
	hcloud.ServerStatusInitializing: fleet.StatePending,
	hcloud.ServerStatusStarting:     fleet.StatePending,
	hcloud.ServerStatusRunning:      fleet.StateRunning,
	hcloud.ServerStatusStopping:     fleet.StateStopping,
	hcloud.ServerStatusOff:          fleet.StateStopped,
	hcloud.ServerStatusDeleting:     fleet.StateShuttingDown,
	hcloud.ServerStatusMigrating:    fleet.StatePending,
	hcloud.ServerStatusRebuilding:   fleet.StatePending,
}

func toState(s hcloud.ServerStatus) fleet.State {
	if state, ok := serverStates[s]; ok {
		return state
	}
	return fleet.StatePending
}

// toInstance converts a server into the provider independent form.
func toInstance(s *hcloud.Server) fleet.Instance {
	inst := fleet.Instance{
		ID:                    strconv.FormatInt(s.ID, 10),
		State:                 toState(s.Status),
		Tags:                  make(map[string]string, len(s.Labels)),
		DisableAPITermination: s.Protection.Delete,
		LaunchTime:            s.Created,
	}
	for k, v := range s.Labels {
		if k == ClientTokenLabel {
			inst.ClientToken = v
			continue
		}
		inst.Tags[k] = v
	}
	if s.Location != nil {
		inst.Zone = s.Location.Name
	}
	if s.ServerType != nil {
		inst.InstanceType = s.ServerType.Name
		inst.Architecture = string(s.ServerType.Architecture)
	}
	if s.Image != nil {
		inst.ImageID = s.Image.Name
		if inst.ImageID == "" {
			inst.ImageID = strconv.FormatInt(s.Image.ID, 10)
		}
	}
	if ip := s.PublicNet.IPv4.IP; ip != nil && !ip.IsUnspecified() {
		inst.PublicIP = ip.String()
	}
	if len(s.PrivateNet) > 0 && s.PrivateNet[0].IP != nil {
		inst.PrivateIP = s.PrivateNet[0].IP.String()
	}
	inst.PublicDNSName = s.PublicNet.IPv4.DNSPtr
	return inst
}

// labelSelector builds the server-side pre-filter for a tag filter. Filters
// with alternatives cannot be expressed and are applied client side only.
func labelSelector(f fleet.TagFilter) string {
	var parts []string
	switch f.Kind() {
	case fleet.TagFilterExists:
		parts = append(parts, f.Keys()...)
	case fleet.TagFilterEquals:
		for k, v := range f.Values() {
			parts = append(parts, k+"="+v)
		}
	default:
		return ""
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, &fleet.APIError{
			Code:         fleet.CodeInstanceNotFound,
			ProviderCode: string(hcloud.ErrorCodeInvalidInput),
			Message:      "invalid server id: " + id,
		}
	}
	return n, nil
}
