package fleet

import "context"

// API is the remote fleet surface consumed by the engine.
//
// Implementations must be safe for sequential use by one invocation; the
// engine never issues two calls concurrently.
type API interface {
	// ListInstances returns every instance matching the filter, with
	// reservation grouping already flattened.
	ListInstances(ctx context.Context, filter Filter) ([]Instance, error)

	// CreateInstances launches exactly spec.Count on-demand instances.
	CreateInstances(ctx context.Context, spec LaunchSpec) ([]Instance, error)

	// RequestSpotInstances submits spec.Count spot requests.
	RequestSpotInstances(ctx context.Context, bid SpotOptions, spec LaunchSpec) ([]SpotRequest, error)

	// ListSpotRequests returns all spot requests visible to the caller.
	ListSpotRequests(ctx context.Context) ([]SpotRequest, error)

	TerminateInstance(ctx context.Context, id string) error
	StartInstance(ctx context.Context, id string) error
	StopInstance(ctx context.Context, id string) error
	RebootInstance(ctx context.Context, id string) error

	// GetAttribute reads the live value of a safety attribute.
	GetAttribute(ctx context.Context, id string, attr Attribute) (bool, error)

	// ModifyAttribute sets an instance-level safety attribute. Instances with
	// several network interfaces reject AttrSourceDestCheck with
	// CodeMultipleInterfaces.
	ModifyAttribute(ctx context.Context, id string, attr Attribute, value bool) error

	// ModifyInterfaceAttribute sets a per-interface attribute.
	ModifyInterfaceAttribute(ctx context.Context, interfaceID string, attr Attribute, value bool) error

	CreateTags(ctx context.Context, ids []string, tags map[string]string) error

	// SnapshotSize returns the size in GiB of a volume snapshot.
	SnapshotSize(ctx context.Context, snapshotID string) (int32, error)

	// Capabilities reports the optional features of this client.
	Capabilities() Capabilities
}
