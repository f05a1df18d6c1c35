package hcloud

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/imamik/fleetctl/internal/fleet"
	"github.com/imamik/fleetctl/internal/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// ListInstances returns the servers matching filter. Servers deleted by this
// client are reported as terminated.
func (c *Client) ListInstances(ctx context.Context, filter fleet.Filter) ([]fleet.Instance, error) {
	var candidates []fleet.Instance
	if len(filter.IDs) > 0 {
		for _, id := range filter.IDs {
			inst, ok, err := c.get(ctx, id)
			if err != nil {
				return nil, err
			}
			if ok {
				candidates = append(candidates, inst)
			}
		}
		if len(candidates) == 0 {
			return nil, notFound(filter.IDs)
		}
	} else {
		servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
			ListOpts: hcloud.ListOpts{LabelSelector: labelSelector(filter.Tags)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list servers: %w", classify(err))
		}
		for _, s := range servers {
			candidates = append(candidates, toInstance(s))
		}
		candidates = append(candidates, c.deletedInstances()...)
	}

	out := make([]fleet.Instance, 0, len(candidates))
	for _, inst := range candidates {
		if filter.Matches(inst) {
			out = append(out, inst)
		}
	}
	return out, nil
}

// get returns one server, falling back to the deleted set.
func (c *Client) get(ctx context.Context, id string) (fleet.Instance, bool, error) {
	if inst, ok := c.deletedInstance(id); ok {
		return inst, true, nil
	}
	server, err := c.server(ctx, id)
	if fleet.IsNotFound(err) {
		return fleet.Instance{}, false, nil
	}
	if err != nil {
		return fleet.Instance{}, false, err
	}
	return toInstance(server), true, nil
}

func (c *Client) server(ctx context.Context, id string) (*hcloud.Server, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	server, _, err := c.client.Server.GetByID(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get server %s: %w", id, classify(err))
	}
	if server == nil {
		return nil, notFound([]string{id})
	}
	return server, nil
}

// CreateInstances creates spec.Count servers. Creation returns once the
// create actions are accepted; the servers are still initializing.
func (c *Client) CreateInstances(ctx context.Context, spec fleet.LaunchSpec) ([]fleet.Instance, error) {
	opts, err := c.buildServerCreateOpts(ctx, spec)
	if err != nil {
		return nil, err
	}

	out := make([]fleet.Instance, 0, spec.Count)
	for i := int32(0); i < spec.Count; i++ {
		opts.Name = serverName(spec.ClientToken)
		result, err := c.createServerWithRetry(ctx, opts)
		if err != nil {
			return out, err
		}
		log.FromContext(ctx).V(1).Info("created server", "name", opts.Name, "id", result.Server.ID)
		out = append(out, toInstance(result.Server))
	}
	return out, nil
}

// serverName derives a unique RFC 1123 name for a new server.
func serverName(token string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	if token == "" {
		return "fleet-" + suffix
	}
	token = strings.ToLower(token)
	token = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '-'
	}, token)
	if len(token) > 40 {
		token = token[:40]
	}
	return "fleet-" + strings.Trim(token, "-") + "-" + suffix
}

// buildServerCreateOpts resolves all dependencies and builds server creation options.
func (c *Client) buildServerCreateOpts(ctx context.Context, spec fleet.LaunchSpec) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, spec.InstanceType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", classify(err))
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", spec.InstanceType)
	}

	image, _, err := c.client.Image.GetForArchitecture(ctx, spec.ImageID, serverType.Architecture)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get image: %w", classify(err))
	}
	if image == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("image not found: %s", spec.ImageID)
	}

	opts := hcloud.ServerCreateOpts{
		ServerType: serverType,
		Image:      image,
		UserData:   spec.UserData,
		Labels:     map[string]string{},
		PublicNet: &hcloud.ServerCreatePublicNet{
			EnableIPv4: spec.AssignPublicIP || spec.SubnetID == "",
			EnableIPv6: true,
		},
	}
	if spec.ClientToken != "" {
		opts.Labels[ClientTokenLabel] = spec.ClientToken
	}

	if spec.KeyName != "" {
		key, _, err := c.client.SSHKey.Get(ctx, spec.KeyName)
		if err != nil {
			return opts, fmt.Errorf("failed to get ssh key %s: %w", spec.KeyName, classify(err))
		}
		if key == nil {
			return opts, fmt.Errorf("ssh key not found: %s", spec.KeyName)
		}
		opts.SSHKeys = []*hcloud.SSHKey{key}
	}

	if spec.Zone != "" {
		location, _, err := c.client.Location.Get(ctx, spec.Zone)
		if err != nil {
			return opts, fmt.Errorf("failed to get location %s: %w", spec.Zone, classify(err))
		}
		if location == nil {
			return opts, fmt.Errorf("location not found: %s", spec.Zone)
		}
		opts.Location = location
	}

	if spec.PlacementGroup != "" {
		pg, _, err := c.client.PlacementGroup.Get(ctx, spec.PlacementGroup)
		if err != nil {
			return opts, fmt.Errorf("failed to get placement group %s: %w", spec.PlacementGroup, classify(err))
		}
		if pg == nil {
			return opts, fmt.Errorf("placement group not found: %s", spec.PlacementGroup)
		}
		opts.PlacementGroup = pg
	}

	if spec.SubnetID != "" {
		network, _, err := c.client.Network.Get(ctx, spec.SubnetID)
		if err != nil {
			return opts, fmt.Errorf("failed to get network %s: %w", spec.SubnetID, classify(err))
		}
		if network == nil {
			return opts, fmt.Errorf("network not found: %s", spec.SubnetID)
		}
		opts.Networks = []*hcloud.Network{network}
	}

	groups := append(append([]string{}, spec.SecurityGroupIDs...), spec.SecurityGroupNames...)
	for _, name := range groups {
		fw, _, err := c.client.Firewall.Get(ctx, name)
		if err != nil {
			return opts, fmt.Errorf("failed to get firewall %s: %w", name, classify(err))
		}
		if fw == nil {
			return opts, fmt.Errorf("firewall not found: %s", name)
		}
		opts.Firewalls = append(opts.Firewalls, &hcloud.ServerCreateFirewall{Firewall: *fw})
	}

	return opts, nil
}

// createServerWithRetry creates a server with exponential backoff retry logic.
func (c *Client) createServerWithRetry(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	var result hcloud.ServerCreateResult

	err := retry.WithExponentialBackoff(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(classify(err))
			}
			return classify(err)
		}
		result = res
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return result, fmt.Errorf("failed to create server: %w", err)
	}
	return result, nil
}

// TerminateInstance deletes the server.
func (c *Client) TerminateInstance(ctx context.Context, id string) error {
	server, err := c.server(ctx, id)
	if err != nil {
		return err
	}
	err = c.withLockRetry(ctx, func() error {
		_, _, err := c.client.Server.DeleteWithResult(ctx, server)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete server %s: %w", id, err)
	}
	c.rememberDeleted(toInstance(server))
	return nil
}

// StartInstance powers the server on.
func (c *Client) StartInstance(ctx context.Context, id string) error {
	return c.serverAction(ctx, id, "power on", c.client.Server.Poweron)
}

// StopInstance shuts the server down gracefully.
func (c *Client) StopInstance(ctx context.Context, id string) error {
	return c.serverAction(ctx, id, "shut down", c.client.Server.Shutdown)
}

// RebootInstance reboots the server gracefully.
func (c *Client) RebootInstance(ctx context.Context, id string) error {
	return c.serverAction(ctx, id, "reboot", c.client.Server.Reboot)
}

func (c *Client) serverAction(
	ctx context.Context,
	id string,
	name string,
	action func(context.Context, *hcloud.Server) (*hcloud.Action, *hcloud.Response, error),
) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	err = c.withLockRetry(ctx, func() error {
		_, _, err := action(ctx, &hcloud.Server{ID: n})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to %s server %s: %w", name, id, err)
	}
	return nil
}

// withLockRetry retries fn while the server is locked by another action.
func (c *Client) withLockRetry(ctx context.Context, fn func() error) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		err := fn()
		if err != nil && !isResourceLocked(err) {
			return retry.Fatal(classify(err))
		}
		return classify(err)
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
}

// CreateTags merges tags into the labels of every server.
func (c *Client) CreateTags(ctx context.Context, ids []string, tags map[string]string) error {
	for _, id := range ids {
		server, err := c.server(ctx, id)
		if err != nil {
			return err
		}
		labels := make(map[string]string, len(server.Labels)+len(tags))
		for k, v := range server.Labels {
			labels[k] = v
		}
		for k, v := range tags {
			labels[k] = v
		}
		if _, _, err := c.client.Server.Update(ctx, server, hcloud.ServerUpdateOpts{Labels: labels}); err != nil {
			return fmt.Errorf("failed to label server %s: %w", id, classify(err))
		}
	}
	return nil
}

// SnapshotSize returns the disk size of a snapshot image, rounded up to GiB.
func (c *Client) SnapshotSize(ctx context.Context, snapshotID string) (int32, error) {
	image, _, err := c.client.Image.Get(ctx, snapshotID) //nolint:staticcheck
	if err != nil {
		return 0, fmt.Errorf("failed to get image %s: %w", snapshotID, classify(err))
	}
	if image == nil {
		return 0, fmt.Errorf("image not found: %s", snapshotID)
	}
	return int32(math.Ceil(float64(image.DiskSize))), nil
}

// RequestSpotInstances is not supported.
func (c *Client) RequestSpotInstances(context.Context, fleet.SpotOptions, fleet.LaunchSpec) ([]fleet.SpotRequest, error) {
	return nil, unsupported("spot capacity")
}

// ListSpotRequests is not supported.
func (c *Client) ListSpotRequests(context.Context) ([]fleet.SpotRequest, error) {
	return nil, unsupported("spot capacity")
}
