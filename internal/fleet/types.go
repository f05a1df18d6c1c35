package fleet

import (
	"slices"
	"time"
)

// State is an instance lifecycle state.
type State string

// Lifecycle states reported by providers.
const (
	StatePending      State = "pending"
	StateRunning      State = "running"
	StateStopping     State = "stopping"
	StateStopped      State = "stopped"
	StateShuttingDown State = "shutting-down"
	StateTerminated   State = "terminated"
)

// Interface is a network interface attached to an instance.
type Interface struct {
	ID              string `json:"id"`
	SourceDestCheck bool   `json:"source_dest_check"`
}

// Instance is a single compute instance as observed on the provider.
//
// Only ID, State, Tags and the safety attributes are interpreted by the
// engine; the remaining fields are carried through to the result payload.
type Instance struct {
	ID                    string            `json:"id"`
	State                 State             `json:"state"`
	Tags                  map[string]string `json:"tags"`
	SourceDestCheck       bool              `json:"source_dest_check"`
	DisableAPITermination bool              `json:"termination_protection"`
	Zone                  string            `json:"placement"`
	VPCID                 string            `json:"vpc_id,omitempty"`
	NetworkInterfaces     []Interface       `json:"network_interfaces,omitempty"`

	ImageID        string    `json:"image_id"`
	InstanceType   string    `json:"instance_type"`
	KeyName        string    `json:"key_name,omitempty"`
	PrivateIP      string    `json:"private_ip,omitempty"`
	PublicIP       string    `json:"public_ip,omitempty"`
	PrivateDNSName string    `json:"private_dns_name,omitempty"`
	PublicDNSName  string    `json:"public_dns_name,omitempty"`
	Architecture   string    `json:"architecture,omitempty"`
	Tenancy        string    `json:"tenancy,omitempty"`
	ClientToken    string    `json:"client_token,omitempty"`
	LaunchTime     time.Time `json:"launch_time"`
}

// Clone returns a deep copy of the instance.
func (i Instance) Clone() Instance {
	out := i
	if i.Tags != nil {
		out.Tags = make(map[string]string, len(i.Tags))
		for k, v := range i.Tags {
			out.Tags[k] = v
		}
	}
	out.NetworkInterfaces = slices.Clone(i.NetworkInterfaces)
	return out
}

// IDs returns the ids of the given instances in order.
func IDs(instances []Instance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	return ids
}

// Filter selects instances on a read. The zero Filter matches everything.
type Filter struct {
	IDs         []string
	Tags        TagFilter
	States      []State
	Zone        string
	ClientToken string
}

// Matches reports whether the instance satisfies every predicate of the filter.
func (f Filter) Matches(inst Instance) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, inst.ID) {
		return false
	}
	if len(f.States) > 0 && !slices.Contains(f.States, inst.State) {
		return false
	}
	if f.Zone != "" && inst.Zone != f.Zone {
		return false
	}
	if f.ClientToken != "" && inst.ClientToken != f.ClientToken {
		return false
	}
	return f.Tags.Matches(inst.Tags)
}

// Attribute names an instance safety attribute.
type Attribute string

// Safety attributes understood by the engine.
const (
	AttrSourceDestCheck       Attribute = "sourceDestCheck"
	AttrDisableAPITermination Attribute = "disableApiTermination"
)

// Capabilities describes which optional launch features the connected
// provider client supports. Adapters populate it once at construction.
type Capabilities struct {
	SpotInstances         bool
	SpotPlacementGroup    bool
	InstanceProfileName   bool
	AssociatePublicIP     bool
	// SourceDestCheck covers reading and changing sourceDestCheck, on the
	// instance and on its network interfaces.
	SourceDestCheck       bool
	// TerminationProtection covers reading and changing
	// disableApiTermination.
	TerminationProtection bool
}

// DesiredAttributes are the safety attribute intents of an invocation. A nil
// field means leave the live value as-is.
type DesiredAttributes struct {
	SourceDestCheck       *bool
	DisableAPITermination *bool
}

// IsZero reports whether no attribute is requested.
func (d DesiredAttributes) IsZero() bool {
	return d.SourceDestCheck == nil && d.DisableAPITermination == nil
}

// Apply copies the requested values onto inst.
func (d DesiredAttributes) Apply(inst *Instance) {
	if d.SourceDestCheck != nil && inst.VPCID != "" {
		inst.SourceDestCheck = *d.SourceDestCheck
		for i := range inst.NetworkInterfaces {
			inst.NetworkInterfaces[i].SourceDestCheck = *d.SourceDestCheck
		}
	}
	if d.DisableAPITermination != nil {
		inst.DisableAPITermination = *d.DisableAPITermination
	}
}
