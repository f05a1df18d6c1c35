package config

import (
	"slices"

	"github.com/imamik/fleetctl/internal/fleet"
)

var validStates = []State{StatePresent, StateAbsent, StateRunning, StateStopped, StateRestarted}

// Validate checks parameter combinations that must be rejected before any
// provider call. It runs before ApplyDefaults so explicit and defaulted
// values can be told apart, and is safe to call again afterwards.
func (p *Params) Validate() error {
	state := p.State
	if state == "" {
		state = StatePresent
	}
	if !slices.Contains(validStates, state) {
		return invalid("state must be one of present, absent, running, stopped, restarted, got %q", p.State)
	}

	if err := p.validateExclusions(state); err != nil {
		return err
	}

	switch state {
	case StatePresent:
		if p.Image == "" {
			return invalid("image parameter is required for new instances")
		}
	case StateAbsent:
		if len(p.InstanceIDs) == 0 {
			return invalid("instance_ids list is required for absent state")
		}
	case StateRunning, StateStopped, StateRestarted:
		if len(p.InstanceIDs) == 0 && len(p.InstanceTags) == 0 {
			return invalid("%s needs a list of instance_ids or a set of instance_tags", state)
		}
	}

	if p.ExactCount != nil {
		if *p.ExactCount < 0 {
			return invalid("exact_count must not be negative")
		}
		if p.CountTag.IsZero() {
			return invalid("you must use the 'count_tag' option with exact_count")
		}
	}
	if p.Count != nil && *p.Count < 0 {
		return invalid("count must not be negative")
	}
	if p.WaitTimeout < 0 || p.SpotWaitTimeout < 0 {
		return invalid("wait timeouts must not be negative")
	}
	if p.SpotType != "" && p.SpotType != string(fleet.SpotOneTime) && p.SpotType != string(fleet.SpotPersistent) {
		return invalid("spot_type must be one-time or persistent, got %q", p.SpotType)
	}
	switch fleet.ShutdownBehavior(p.ShutdownBehavior) {
	case "", fleet.ShutdownStop, fleet.ShutdownTerminate:
	default:
		return invalid("instance_initiated_shutdown_behavior must be stop or terminate, got %q", p.ShutdownBehavior)
	}
	return nil
}

func (p *Params) validateExclusions(state State) error {
	if p.ExactCount != nil {
		if p.Count != nil {
			return invalid("parameters are mutually exclusive: exact_count|count")
		}
		if len(p.InstanceIDs) > 0 {
			return invalid("parameters are mutually exclusive: exact_count|instance_ids")
		}
		if state != StatePresent {
			return invalid("parameters are mutually exclusive: exact_count|state")
		}
	}
	if len(p.NetworkInterfaces) > 0 {
		others := map[string]bool{
			"assign_public_ip": p.AssignPublicIP,
			"group":            len(p.Groups) > 0,
			"group_id":         len(p.GroupIDs) > 0,
			"private_ip":       p.PrivateIP != "",
			"vpc_subnet_id":    p.VPCSubnetID != "",
		}
		for _, name := range []string{"assign_public_ip", "group", "group_id", "private_ip", "vpc_subnet_id"} {
			if others[name] {
				return invalid("parameters are mutually exclusive: network_interfaces|%s", name)
			}
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fleet.Errorf(fleet.KindValidation, "validate params", format, args...)
}
