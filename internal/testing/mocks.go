package testing

import (
	"context"

	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/stretchr/testify/mock"
)

// MockFleetAPI is a mock implementation of the fleet.API interface.
type MockFleetAPI struct {
	mock.Mock
	Caps fleet.Capabilities
}

var _ fleet.API = (*MockFleetAPI)(nil)

// NewMockFleetAPI returns a mock advertising every optional capability.
func NewMockFleetAPI() *MockFleetAPI {
	return &MockFleetAPI{Caps: fleet.Capabilities{
		SpotInstances:         true,
		SpotPlacementGroup:    true,
		InstanceProfileName:   true,
		AssociatePublicIP:     true,
		SourceDestCheck:       true,
		TerminationProtection: true,
	}}
}

// ListInstances returns the configured instances.
func (m *MockFleetAPI) ListInstances(ctx context.Context, filter fleet.Filter) ([]fleet.Instance, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fleet.Instance), args.Error(1)
}

// CreateInstances returns the configured launch result.
func (m *MockFleetAPI) CreateInstances(ctx context.Context, spec fleet.LaunchSpec) ([]fleet.Instance, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fleet.Instance), args.Error(1)
}

// RequestSpotInstances returns the configured spot requests.
func (m *MockFleetAPI) RequestSpotInstances(ctx context.Context, bid fleet.SpotOptions, spec fleet.LaunchSpec) ([]fleet.SpotRequest, error) {
	args := m.Called(ctx, bid, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fleet.SpotRequest), args.Error(1)
}

// ListSpotRequests returns the configured spot request snapshot.
func (m *MockFleetAPI) ListSpotRequests(ctx context.Context) ([]fleet.SpotRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fleet.SpotRequest), args.Error(1)
}

// TerminateInstance records a termination.
func (m *MockFleetAPI) TerminateInstance(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// StartInstance records a start.
func (m *MockFleetAPI) StartInstance(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// StopInstance records a stop.
func (m *MockFleetAPI) StopInstance(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// RebootInstance records a reboot.
func (m *MockFleetAPI) RebootInstance(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// GetAttribute returns the configured attribute value.
func (m *MockFleetAPI) GetAttribute(ctx context.Context, id string, attr fleet.Attribute) (bool, error) {
	args := m.Called(ctx, id, attr)
	return args.Bool(0), args.Error(1)
}

// ModifyAttribute records an instance attribute change.
func (m *MockFleetAPI) ModifyAttribute(ctx context.Context, id string, attr fleet.Attribute, value bool) error {
	return m.Called(ctx, id, attr, value).Error(0)
}

// ModifyInterfaceAttribute records an interface attribute change.
func (m *MockFleetAPI) ModifyInterfaceAttribute(ctx context.Context, interfaceID string, attr fleet.Attribute, value bool) error {
	return m.Called(ctx, interfaceID, attr, value).Error(0)
}

// CreateTags records a tagging call.
func (m *MockFleetAPI) CreateTags(ctx context.Context, ids []string, tags map[string]string) error {
	return m.Called(ctx, ids, tags).Error(0)
}

// SnapshotSize returns the configured snapshot size.
func (m *MockFleetAPI) SnapshotSize(ctx context.Context, snapshotID string) (int32, error) {
	args := m.Called(ctx, snapshotID)
	return int32(args.Int(0)), args.Error(1)
}

// Capabilities returns Caps without recording a call.
func (m *MockFleetAPI) Capabilities() fleet.Capabilities {
	return m.Caps
}

// MutatingCalls counts recorded calls that change provider state.
func (m *MockFleetAPI) MutatingCalls() int {
	n := 0
	for _, c := range m.Calls {
		switch c.Method {
		case "CreateInstances", "RequestSpotInstances", "TerminateInstance", "StartInstance",
			"StopInstance", "RebootInstance", "ModifyAttribute", "ModifyInterfaceAttribute", "CreateTags":
			n++
		}
	}
	return n
}
