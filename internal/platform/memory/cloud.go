package memory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/imamik/fleetctl/internal/fleet"
	"k8s.io/utils/clock"
)

// DefaultZone is the placement of instances launched without a zone.
const DefaultZone = "sim-1a"

type instance struct {
	fleet.Instance
	terminationProtection bool
	// remaining list calls before a transitional state completes
	remaining int
	// list calls during which the instance is not yet visible
	hidden int
}

type spotRequest struct {
	fleet.SpotRequest
	spec      fleet.LaunchSpec
	remaining int
}

// Cloud is a simulated fleet. It is safe for concurrent use.
type Cloud struct {
	mu sync.Mutex

	clock        clock.PassiveClock
	caps         fleet.Capabilities
	steps        int
	visibleAfter int
	spotSteps    int

	instances map[string]*instance
	order     []string
	spot      map[string]*spotRequest
	spotOrder []string
	snapshots map[string]int32
	ips       int
}

var _ fleet.API = (*Cloud)(nil)

// Option configures a Cloud.
type Option func(*Cloud)

// WithClock sets the clock used for launch times.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Cloud) {
		s.clock = c
	}
}

// WithCapabilities overrides the advertised capabilities.
func WithCapabilities(caps fleet.Capabilities) Option {
	return func(s *Cloud) {
		s.caps = caps
	}
}

// WithTransitionSteps sets how many ListInstances calls a transitional
// state lasts. Defaults to 1.
func WithTransitionSteps(n int) Option {
	return func(s *Cloud) {
		s.steps = n
	}
}

// WithVisibilityDelay keeps new instances invisible until the nth
// ListInstances call after their launch, as an eventually consistent API
// would.
func WithVisibilityDelay(n int) Option {
	return func(s *Cloud) {
		s.visibleAfter = n
	}
}

// WithSpotFulfillment sets how many ListSpotRequests calls an open request
// waits before it is fulfilled. Defaults to 1.
func WithSpotFulfillment(n int) Option {
	return func(s *Cloud) {
		s.spotSteps = n
	}
}

// New creates an empty simulated fleet.
func New(opts ...Option) *Cloud {
	s := &Cloud{
		clock: clock.RealClock{},
		caps: fleet.Capabilities{
			SpotInstances:         true,
			SpotPlacementGroup:    true,
			InstanceProfileName:   true,
			AssociatePublicIP:     true,
			SourceDestCheck:       true,
			TerminationProtection: true,
		},
		steps:     1,
		spotSteps: 1,
		instances: make(map[string]*instance),
		spot:      make(map[string]*spotRequest),
		snapshots: make(map[string]int32),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capabilities reports the configured capabilities.
func (s *Cloud) Capabilities() fleet.Capabilities {
	return s.caps
}

// Add seeds an existing instance. Its state is kept as given.
func (s *Cloud) Add(inst fleet.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := inst.Clone()
	if c.Tags == nil {
		c.Tags = map[string]string{}
	}
	if _, ok := s.instances[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.instances[c.ID] = &instance{Instance: c, remaining: s.steps}
}

// Get returns a copy of the instance with the given id.
func (s *Cloud) Get(id string) (fleet.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return fleet.Instance{}, false
	}
	return inst.Clone(), true
}

// All returns a copy of every instance in creation order, including
// terminated ones.
func (s *Cloud) All() []fleet.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]fleet.Instance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.instances[id].Clone())
	}
	return out
}

// SetSnapshot registers a volume snapshot of the given size in GiB.
func (s *Cloud) SetSnapshot(id string, sizeGiB int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[id] = sizeGiB
}

// CloseSpotRequest ends an open request without an instance, as the
// provider does on a fault or an eviction.
func (s *Cloud) CloseSpotRequest(id string, state fleet.SpotState, statusCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.spot[id]
	if !ok {
		return notFound("InvalidSpotInstanceRequestID.NotFound", id)
	}
	r.State = state
	r.StatusCode = statusCode
	if state == fleet.SpotStateFailed {
		r.FaultCode = statusCode
	}
	return nil
}

// tick advances every transitional state by one step. Callers hold mu.
func (s *Cloud) tick() {
	for _, id := range s.order {
		inst := s.instances[id]
		if inst.hidden > 0 {
			inst.hidden--
		}
		if !isTransitional(inst.State) {
			continue
		}
		inst.remaining--
		if inst.remaining <= 0 {
			s.settle(inst)
		}
	}
}

// transition moves inst into a transitional state. Callers hold mu.
func (s *Cloud) transition(inst *instance, state fleet.State) {
	inst.State = state
	inst.remaining = s.steps
	if s.steps <= 0 {
		s.settle(inst)
	}
}

func (s *Cloud) settle(inst *instance) {
	inst.remaining = 0
	switch inst.State {
	case fleet.StatePending:
		inst.State = fleet.StateRunning
	case fleet.StateStopping:
		inst.State = fleet.StateStopped
	case fleet.StateShuttingDown:
		inst.State = fleet.StateTerminated
	}
}

func isTransitional(state fleet.State) bool {
	return state == fleet.StatePending || state == fleet.StateStopping || state == fleet.StateShuttingDown
}

// launch creates one pending instance from spec. Callers hold mu.
func (s *Cloud) launch(spec fleet.LaunchSpec) *instance {
	s.ips++
	zone := spec.Zone
	if zone == "" {
		zone = DefaultZone
	}
	inst := &instance{
		Instance: fleet.Instance{
			ID:                    newID("i-", 17),
			Tags:                  map[string]string{},
			SourceDestCheck:       true,
			Zone:                  zone,
			ImageID:               spec.ImageID,
			InstanceType:          spec.InstanceType,
			KeyName:               spec.KeyName,
			PrivateIP:             fmt.Sprintf("10.0.%d.%d", s.ips/250, s.ips%250+4),
			Architecture:          "x86_64",
			Tenancy:               spec.Tenancy,
			ClientToken:           spec.ClientToken,
			LaunchTime:            s.clock.Now(),
		},
		hidden: s.visibleAfter,
	}
	if spec.PrivateIP != "" {
		inst.PrivateIP = spec.PrivateIP
	}
	if spec.SubnetID != "" || len(spec.NetworkInterfaceIDs) > 0 {
		inst.VPCID = "vpc-sim"
		ifaces := spec.NetworkInterfaceIDs
		if len(ifaces) == 0 {
			ifaces = []string{newID("eni-", 17)}
		}
		for _, id := range ifaces {
			inst.NetworkInterfaces = append(inst.NetworkInterfaces, fleet.Interface{ID: id, SourceDestCheck: true})
		}
	}
	if spec.AssignPublicIP {
		inst.PublicIP = fmt.Sprintf("203.0.113.%d", s.ips%250+1)
	}
	s.transition(inst, fleet.StatePending)
	s.instances[inst.ID] = inst
	s.order = append(s.order, inst.ID)
	return inst
}

func (s *Cloud) find(id string) (*instance, error) {
	inst, ok := s.instances[id]
	if !ok || inst.hidden > 0 {
		return nil, notFound("InvalidInstanceID.NotFound", id)
	}
	return inst, nil
}

func newID(prefix string, n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + hex[:n]
}

func notFound(code, id string) *fleet.APIError {
	return &fleet.APIError{
		Code:         fleet.CodeInstanceNotFound,
		ProviderCode: code,
		Message:      fmt.Sprintf("The ID '%s' does not exist", id),
	}
}
