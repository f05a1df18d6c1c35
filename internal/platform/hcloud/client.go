package hcloud

import (
	"sync"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/imamik/fleetctl/internal/config"
	"github.com/imamik/fleetctl/internal/fleet"
)

// ClientTokenLabel carries the idempotency token of a launch.
const ClientTokenLabel = "fleetctl.io/client-token"

// Client implements fleet.API using the Hetzner Cloud API.
type Client struct {
	client   *hcloud.Client
	timeouts *config.Timeouts

	mu      sync.Mutex
	deleted map[string]fleet.Instance
}

var _ fleet.API = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *Client) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a new Client with optional configuration.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		client:   hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("fleetctl", "")),
		timeouts: config.LoadTimeouts(),
		deleted:  make(map[string]fleet.Instance),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capabilities reports the launch features Hetzner supports.
func (c *Client) Capabilities() fleet.Capabilities {
	return fleet.Capabilities{
		AssociatePublicIP:     true,
		TerminationProtection: true,
	}
}

func (c *Client) rememberDeleted(inst fleet.Instance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst.State = fleet.StateTerminated
	c.deleted[inst.ID] = inst
}

func (c *Client) deletedInstance(id string) (fleet.Instance, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.deleted[id]
	return inst.Clone(), ok
}

func (c *Client) deletedInstances() []fleet.Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]fleet.Instance, 0, len(c.deleted))
	for _, inst := range c.deleted {
		out = append(out, inst.Clone())
	}
	return out
}
