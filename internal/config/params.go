package config

import (
	"fmt"
	"time"

	"github.com/imamik/fleetctl/internal/fleet"
	"gopkg.in/yaml.v3"
)

// State is the requested outcome for the selected instances.
type State string

// Requested states.
const (
	StatePresent   State = "present"
	StateAbsent    State = "absent"
	StateRunning   State = "running"
	StateStopped   State = "stopped"
	StateRestarted State = "restarted"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultCount           = 1
	DefaultWaitTimeout     = 300
	DefaultSpotWaitTimeout = 600
	DefaultTenancy         = "default"
)

// StringList accepts either a scalar or a sequence in YAML.
type StringList []string

// UnmarshalYAML decodes a single string or a list of strings.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Volume is one block device entry of the launch configuration.
type Volume struct {
	DeviceName          string `yaml:"device_name"`
	DeviceType          string `yaml:"device_type,omitempty"`
	VolumeType          string `yaml:"volume_type,omitempty"`
	VolumeSize          *int32 `yaml:"volume_size,omitempty"`
	IOPS                *int32 `yaml:"iops,omitempty"`
	Snapshot            string `yaml:"snapshot,omitempty"`
	Ephemeral           string `yaml:"ephemeral,omitempty"`
	Encrypted           *bool  `yaml:"encrypted,omitempty"`
	DeleteOnTermination bool   `yaml:"delete_on_termination,omitempty"`
}

// Params is the full desired state of one invocation.
type Params struct {
	State State `yaml:"state"`

	// Exact fleet size mode.
	ExactCount *int            `yaml:"exact_count"`
	CountTag   fleet.TagFilter `yaml:"count_tag"`
	Count      *int            `yaml:"count"`
	Zone       string          `yaml:"zone"`

	Wait            bool `yaml:"wait"`
	WaitTimeout     int  `yaml:"wait_timeout"`
	SpotWaitTimeout int  `yaml:"spot_wait_timeout"`

	SpotPrice       string `yaml:"spot_price"`
	SpotType        string `yaml:"spot_type"`
	SpotLaunchGroup string `yaml:"spot_launch_group"`

	InstanceTags          map[string]string `yaml:"instance_tags"`
	SourceDestCheck       *bool             `yaml:"source_dest_check"`
	TerminationProtection *bool             `yaml:"termination_protection"`
	InstanceIDs           StringList        `yaml:"instance_ids"`

	Image               string     `yaml:"image"`
	InstanceType        string     `yaml:"instance_type"`
	KeyName             string     `yaml:"key_name"`
	Groups              StringList `yaml:"group"`
	GroupIDs            StringList `yaml:"group_id"`
	VPCSubnetID         string     `yaml:"vpc_subnet_id"`
	AssignPublicIP      bool       `yaml:"assign_public_ip"`
	PrivateIP           string     `yaml:"private_ip"`
	InstanceProfileName string     `yaml:"instance_profile_name"`
	PlacementGroup      string     `yaml:"placement_group"`
	Volumes             []Volume   `yaml:"volumes"`
	NetworkInterfaces   StringList `yaml:"network_interfaces"`
	ShutdownBehavior    string     `yaml:"instance_initiated_shutdown_behavior"`
	EBSOptimized        bool       `yaml:"ebs_optimized"`
	Monitoring          bool       `yaml:"monitoring"`
	Tenancy             string     `yaml:"tenancy"`
	UserData            string     `yaml:"user_data"`
	Kernel              string     `yaml:"kernel"`
	Ramdisk             string     `yaml:"ramdisk"`
	ClientToken         string     `yaml:"id"`
}

// ApplyDefaults fills unset fields with their documented defaults.
// Count stays unset in exact count mode so the two never coexist. The
// source/dest check defaults to enabled only for launches; on existing
// instances an unset value leaves the live setting alone.
func (p *Params) ApplyDefaults() {
	if p.State == "" {
		p.State = StatePresent
	}
	if p.Count == nil && p.ExactCount == nil {
		n := DefaultCount
		p.Count = &n
	}
	if p.WaitTimeout == 0 {
		p.WaitTimeout = DefaultWaitTimeout
	}
	if p.SpotWaitTimeout == 0 {
		p.SpotWaitTimeout = DefaultSpotWaitTimeout
	}
	if p.SpotType == "" {
		p.SpotType = string(fleet.SpotOneTime)
	}
	if p.SourceDestCheck == nil && p.State == StatePresent {
		t := true
		p.SourceDestCheck = &t
	}
	if p.Tenancy == "" {
		p.Tenancy = DefaultTenancy
	}
}

// IsSpot reports whether instances are requested as spot capacity.
func (p *Params) IsSpot() bool {
	return p.SpotPrice != ""
}

// WaitDuration returns the state convergence deadline as a duration.
func (p *Params) WaitDuration() time.Duration {
	return time.Duration(p.WaitTimeout) * time.Second
}

// SpotWaitDuration returns the spot fulfillment deadline as a duration.
func (p *Params) SpotWaitDuration() time.Duration {
	return time.Duration(p.SpotWaitTimeout) * time.Second
}

// Desired returns the safety attribute intents. A nil field leaves the live
// value untouched.
func (p *Params) Desired() fleet.DesiredAttributes {
	return fleet.DesiredAttributes{
		SourceDestCheck:       p.SourceDestCheck,
		DisableAPITermination: p.TerminationProtection,
	}
}

// SelectionTags returns instance_tags as an equality filter, used to select
// instances for the running, stopped and restarted states.
func (p *Params) SelectionTags() fleet.TagFilter {
	return fleet.Equals(p.InstanceTags)
}

// LaunchSpec converts the launch parameters into a provider request.
// count is the number of instances still to create.
func (p *Params) LaunchSpec(count int) fleet.LaunchSpec {
	spec := fleet.LaunchSpec{
		ImageID:             p.Image,
		InstanceType:        p.InstanceType,
		KeyName:             p.KeyName,
		Zone:                p.Zone,
		Monitoring:          p.Monitoring,
		KernelID:            p.Kernel,
		RamdiskID:           p.Ramdisk,
		UserData:            p.UserData,
		PlacementGroup:      p.PlacementGroup,
		EBSOptimized:        p.EBSOptimized,
		SubnetID:            p.VPCSubnetID,
		AssignPublicIP:      p.AssignPublicIP,
		PrivateIP:           p.PrivateIP,
		InstanceProfileName: p.InstanceProfileName,
		SecurityGroupNames:  p.Groups,
		SecurityGroupIDs:    p.GroupIDs,
		NetworkInterfaceIDs: p.NetworkInterfaces,
		ShutdownBehavior:    fleet.ShutdownBehavior(p.ShutdownBehavior),
		ClientToken:         p.ClientToken,
		Count:               int32(count),
	}
	// Tenancy is not a valid spot request parameter.
	if !p.IsSpot() {
		spec.Tenancy = p.Tenancy
	}
	for _, v := range p.Volumes {
		spec.Volumes = append(spec.Volumes, fleet.BlockDevice{
			DeviceName:          v.DeviceName,
			DeviceType:          v.DeviceType,
			VolumeType:          v.VolumeType,
			VolumeSize:          v.VolumeSize,
			IOPS:                v.IOPS,
			SnapshotID:          v.Snapshot,
			Ephemeral:           v.Ephemeral,
			Encrypted:           v.Encrypted,
			DeleteOnTermination: v.DeleteOnTermination,
		})
	}
	return spec
}

// SpotOptions returns the bid parameters.
func (p *Params) SpotOptions() fleet.SpotOptions {
	return fleet.SpotOptions{
		Price:       p.SpotPrice,
		Type:        fleet.SpotType(p.SpotType),
		LaunchGroup: p.SpotLaunchGroup,
	}
}

func (p *Params) String() string {
	return fmt.Sprintf("state=%s exact_count=%v count_tag=%s count=%v", p.State, deref(p.ExactCount), p.CountTag, deref(p.Count))
}

func deref(n *int) any {
	if n == nil {
		return "-"
	}
	return *n
}
