package reconcile

import (
	"context"
	"fmt"

	"github.com/imamik/fleetctl/internal/fleet"
)

// maxIOPSToSizeRatio is the provisioned IOPS limit per GiB of volume size.
const maxIOPSToSizeRatio = 30

const opValidate = "validate launch"

// prepareLaunch validates a launch request against the provider
// capabilities and returns the normalized spec. It only reads from the
// provider (snapshot sizes), never mutates.
func prepareLaunch(ctx context.Context, api fleet.API, req *ProvisionRequest) (fleet.LaunchSpec, error) {
	spec := req.Spec
	spot := req.Spot != nil
	caps := api.Capabilities()

	if len(spec.SecurityGroupNames) > 0 && len(spec.SecurityGroupIDs) > 0 {
		return spec, invalidLaunch("use only one type of parameter (group) or (group_id)")
	}

	if err := validateNetwork(spec); err != nil {
		return spec, err
	}

	volumes, err := prepareVolumes(ctx, api, spec.Volumes)
	if err != nil {
		return spec, err
	}
	spec.Volumes = volumes

	if spec.InstanceProfileName != "" && !caps.InstanceProfileName {
		return spec, unsupported("instance_profile_name is not supported by this provider")
	}
	if spec.AssignPublicIP && !caps.AssociatePublicIP {
		return spec, unsupported("assign_public_ip is not supported by this provider")
	}
	if err := checkAttributeSupport(opValidate, caps, req.Desired, true); err != nil {
		return spec, err
	}

	if !spot {
		if spec.ShutdownBehavior == "" {
			spec.ShutdownBehavior = fleet.ShutdownStop
		}
		return spec, nil
	}

	if !caps.SpotInstances {
		return spec, unsupported("spot instances are not supported by this provider")
	}
	if spec.PlacementGroup != "" && !caps.SpotPlacementGroup {
		return spec, unsupported("placement_group is not supported for spot requests by this provider")
	}
	if spec.PrivateIP != "" {
		return spec, invalidLaunch("private_ip only available with on-demand (non-spot) instances")
	}
	// Spot instances are always terminated on shutdown.
	if spec.ShutdownBehavior != "" && spec.ShutdownBehavior != fleet.ShutdownTerminate {
		return spec, invalidLaunch("instance_initiated_shutdown_behavior=%s is not supported for spot instances", spec.ShutdownBehavior)
	}
	spec.Tenancy = ""
	return spec, nil
}

func validateNetwork(spec fleet.LaunchSpec) error {
	if spec.AssignPublicIP {
		if spec.SubnetID == "" {
			return invalidLaunch("assign_public_ip only available with vpc_subnet_id")
		}
		if len(spec.NetworkInterfaceIDs) > 0 {
			return invalidLaunch("assign_public_ip cannot be combined with network_interfaces")
		}
	}
	if len(spec.NetworkInterfaceIDs) > 0 {
		switch {
		case len(spec.SecurityGroupNames) > 0 || len(spec.SecurityGroupIDs) > 0:
			return invalidLaunch("network_interfaces cannot be combined with group or group_id")
		case spec.PrivateIP != "":
			return invalidLaunch("network_interfaces cannot be combined with private_ip")
		case spec.SubnetID != "":
			return invalidLaunch("network_interfaces cannot be combined with vpc_subnet_id")
		}
	}
	return nil
}

// prepareVolumes validates each block device and drops the ones with an
// explicit size of zero, which mark a volume that should not be created.
func prepareVolumes(ctx context.Context, api fleet.API, volumes []fleet.BlockDevice) ([]fleet.BlockDevice, error) {
	var out []fleet.BlockDevice
	for _, v := range volumes {
		if v.DeviceName == "" {
			return nil, invalidLaunch("device name must be set for volume")
		}
		if v.VolumeSize != nil && *v.VolumeSize <= 0 {
			continue
		}
		prepared, err := prepareVolume(ctx, api, v)
		if err != nil {
			return nil, err
		}
		out = append(out, prepared)
	}
	return out, nil
}

func prepareVolume(ctx context.Context, api fleet.API, v fleet.BlockDevice) (fleet.BlockDevice, error) {
	if v.DeviceType != "" && v.VolumeType != "" {
		return v, invalidLaunch("device_type is a deprecated name for volume_type, do not use both on %s", v.DeviceName)
	}
	if v.VolumeType == "" {
		v.VolumeType = v.DeviceType
	}
	v.DeviceType = ""

	if v.SnapshotID == "" && v.Ephemeral == "" && v.VolumeSize == nil {
		return v, invalidLaunch("size must be specified when creating a new volume or modifying the root volume (%s)", v.DeviceName)
	}
	if v.Ephemeral != "" && v.SnapshotID != "" {
		return v, invalidLaunch("cannot set both ephemeral and snapshot on %s", v.DeviceName)
	}
	if v.SnapshotID != "" && v.Encrypted != nil {
		return v, invalidLaunch("you can not set encryption when creating a volume from a snapshot (%s)", v.DeviceName)
	}
	if v.VolumeType == fleet.VolumeTypeIO1 && v.IOPS == nil {
		return v, invalidLaunch("io1 volumes must have an iops value set (%s)", v.DeviceName)
	}
	if v.IOPS == nil {
		return v, nil
	}
	if v.VolumeType != fleet.VolumeTypeIO1 {
		return v, invalidLaunch("iops can only be set on io1 volumes (%s)", v.DeviceName)
	}

	size := int32(0)
	switch {
	case v.VolumeSize != nil:
		size = *v.VolumeSize
	case v.SnapshotID != "":
		s, err := api.SnapshotSize(ctx, v.SnapshotID)
		if err != nil {
			return v, fmt.Errorf("failed to read size of snapshot %s: %w", v.SnapshotID, err)
		}
		size = s
	}
	if size > 0 && *v.IOPS > maxIOPSToSizeRatio*size {
		return v, invalidLaunch("IOPS must be at most %d times greater than size (%s)", maxIOPSToSizeRatio, v.DeviceName)
	}
	return v, nil
}

// checkAttributeSupport rejects desired attributes the provider cannot
// manage. At launch, values equal to the provider defaults (check enabled,
// protection disabled) need no support.
func checkAttributeSupport(op string, caps fleet.Capabilities, d fleet.DesiredAttributes, launch bool) error {
	if d.SourceDestCheck != nil && (!launch || !*d.SourceDestCheck) && !caps.SourceDestCheck {
		return fleet.Errorf(fleet.KindCapability, op, "source_dest_check is not supported by this provider")
	}
	if d.DisableAPITermination != nil && (!launch || *d.DisableAPITermination) && !caps.TerminationProtection {
		return fleet.Errorf(fleet.KindCapability, op, "termination_protection is not supported by this provider")
	}
	return nil
}

func invalidLaunch(format string, args ...any) *fleet.Error {
	return fleet.Errorf(fleet.KindValidation, opValidate, format, args...)
}

func unsupported(format string, args ...any) *fleet.Error {
	return fleet.Errorf(fleet.KindCapability, opValidate, format, args...)
}
