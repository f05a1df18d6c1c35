package testing

import (
	"time"

	"github.com/imamik/fleetctl/internal/fleet"
)

// InstanceBuilder builds fleet.Instance values for tests.
type InstanceBuilder struct {
	inst fleet.Instance
}

// NewInstance starts a pending instance with the given id.
func NewInstance(id string) *InstanceBuilder {
	return &InstanceBuilder{inst: fleet.Instance{
		ID:              id,
		State:           fleet.StatePending,
		Tags:            map[string]string{},
		SourceDestCheck: true,
		ImageID:         "ami-test",
		InstanceType:    "t3.micro",
		LaunchTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
}

// WithState sets the lifecycle state.
func (b *InstanceBuilder) WithState(s fleet.State) *InstanceBuilder {
	b.inst.State = s
	return b
}

// Running sets the state to running.
func (b *InstanceBuilder) Running() *InstanceBuilder {
	return b.WithState(fleet.StateRunning)
}

// Stopped sets the state to stopped.
func (b *InstanceBuilder) Stopped() *InstanceBuilder {
	return b.WithState(fleet.StateStopped)
}

// WithTag adds a tag.
func (b *InstanceBuilder) WithTag(k, v string) *InstanceBuilder {
	b.inst.Tags[k] = v
	return b
}

// InVPC places the instance in a VPC.
func (b *InstanceBuilder) InVPC(vpcID string) *InstanceBuilder {
	b.inst.VPCID = vpcID
	return b
}

// WithInterfaces attaches network interfaces with source/dest check enabled.
func (b *InstanceBuilder) WithInterfaces(ids ...string) *InstanceBuilder {
	for _, id := range ids {
		b.inst.NetworkInterfaces = append(b.inst.NetworkInterfaces, fleet.Interface{ID: id, SourceDestCheck: true})
	}
	return b
}

// WithZone sets the placement zone.
func (b *InstanceBuilder) WithZone(zone string) *InstanceBuilder {
	b.inst.Zone = zone
	return b
}

// WithClientToken sets the idempotency token.
func (b *InstanceBuilder) WithClientToken(token string) *InstanceBuilder {
	b.inst.ClientToken = token
	return b
}

// Build returns a copy of the instance.
func (b *InstanceBuilder) Build() fleet.Instance {
	return b.inst.Clone()
}

// Instances builds instances with the given ids in the given state.
func Instances(state fleet.State, ids ...string) []fleet.Instance {
	out := make([]fleet.Instance, 0, len(ids))
	for _, id := range ids {
		out = append(out, NewInstance(id).WithState(state).Build())
	}
	return out
}
