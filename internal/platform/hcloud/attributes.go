package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/imamik/fleetctl/internal/fleet"
)

// GetAttribute reads the delete protection of a server.
func (c *Client) GetAttribute(ctx context.Context, id string, attr fleet.Attribute) (bool, error) {
	if attr != fleet.AttrDisableAPITermination {
		return false, unsupported(string(attr))
	}
	server, err := c.server(ctx, id)
	if err != nil {
		return false, err
	}
	return server.Protection.Delete, nil
}

// ModifyAttribute changes the delete protection of a server. Hetzner requires
// rebuild protection to follow delete protection.
func (c *Client) ModifyAttribute(ctx context.Context, id string, attr fleet.Attribute, value bool) error {
	if attr != fleet.AttrDisableAPITermination {
		return unsupported(string(attr))
	}
	n, err := parseID(id)
	if err != nil {
		return err
	}
	err = c.withLockRetry(ctx, func() error {
		_, _, err := c.client.Server.ChangeProtection(ctx, &hcloud.Server{ID: n}, hcloud.ServerChangeProtectionOpts{
			Delete:  hcloud.Ptr(value),
			Rebuild: hcloud.Ptr(value),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to change protection of server %s: %w", id, err)
	}
	return nil
}

// ModifyInterfaceAttribute is not supported.
func (c *Client) ModifyInterfaceAttribute(_ context.Context, _ string, attr fleet.Attribute, _ bool) error {
	return unsupported("interface " + string(attr))
}
