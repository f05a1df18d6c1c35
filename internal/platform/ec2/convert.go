package ec2

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/imamik/fleetctl/internal/fleet"
)

func toInstance(in types.Instance) fleet.Instance {
	inst := fleet.Instance{
		ID:              aws.ToString(in.InstanceId),
		Tags:            make(map[string]string, len(in.Tags)),
		SourceDestCheck: aws.ToBool(in.SourceDestCheck),
		VPCID:           aws.ToString(in.VpcId),
		ImageID:         aws.ToString(in.ImageId),
		InstanceType:    string(in.InstanceType),
		KeyName:         aws.ToString(in.KeyName),
		PrivateIP:       aws.ToString(in.PrivateIpAddress),
		PublicIP:        aws.ToString(in.PublicIpAddress),
		PrivateDNSName:  aws.ToString(in.PrivateDnsName),
		PublicDNSName:   aws.ToString(in.PublicDnsName),
		Architecture:    string(in.Architecture),
		ClientToken:     aws.ToString(in.ClientToken),
		LaunchTime:      aws.ToTime(in.LaunchTime),
	}
	if in.State != nil {
		inst.State = fleet.State(in.State.Name)
	}
	for _, t := range in.Tags {
		inst.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	if in.Placement != nil {
		inst.Zone = aws.ToString(in.Placement.AvailabilityZone)
		inst.Tenancy = string(in.Placement.Tenancy)
	}
	for _, ni := range in.NetworkInterfaces {
		inst.NetworkInterfaces = append(inst.NetworkInterfaces, fleet.Interface{
			ID:              aws.ToString(ni.NetworkInterfaceId),
			SourceDestCheck: aws.ToBool(ni.SourceDestCheck),
		})
	}
	return inst
}

func toSpotRequest(r types.SpotInstanceRequest) fleet.SpotRequest {
	out := fleet.SpotRequest{
		ID:         aws.ToString(r.SpotInstanceRequestId),
		State:      fleet.SpotState(r.State),
		InstanceID: aws.ToString(r.InstanceId),
	}
	if r.Status != nil {
		out.StatusCode = aws.ToString(r.Status.Code)
		out.StatusMessage = aws.ToString(r.Status.Message)
	}
	if r.Fault != nil {
		out.FaultCode = aws.ToString(r.Fault.Code)
		out.FaultMessage = aws.ToString(r.Fault.Message)
	}
	return out
}

// toFilters translates a fleet filter into DescribeInstances filters.
func toFilters(f fleet.Filter) []types.Filter {
	var out []types.Filter
	values := f.Tags.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, types.Filter{Name: aws.String("tag:" + k), Values: []string{values[k]}})
	}
	if anyOf := f.Tags.Keys(); len(anyOf) > 0 {
		out = append(out, types.Filter{Name: aws.String("tag-key"), Values: anyOf})
	}
	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, s := range f.States {
			states = append(states, string(s))
		}
		out = append(out, types.Filter{Name: aws.String("instance-state-name"), Values: states})
	}
	if f.Zone != "" {
		out = append(out, types.Filter{Name: aws.String("availability-zone"), Values: []string{f.Zone}})
	}
	if f.ClientToken != "" {
		out = append(out, types.Filter{Name: aws.String("client-token"), Values: []string{f.ClientToken}})
	}
	return out
}

func toTags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]types.Tag, 0, len(tags))
	for _, k := range keys {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(tags[k])})
	}
	return out
}

func toBlockDevices(volumes []fleet.BlockDevice) []types.BlockDeviceMapping {
	out := make([]types.BlockDeviceMapping, 0, len(volumes))
	for _, v := range volumes {
		m := types.BlockDeviceMapping{DeviceName: aws.String(v.DeviceName)}
		if v.Ephemeral != "" {
			m.VirtualName = aws.String(v.Ephemeral)
			out = append(out, m)
			continue
		}
		ebs := &types.EbsBlockDevice{
			VolumeSize:          v.VolumeSize,
			Iops:                v.IOPS,
			Encrypted:           v.Encrypted,
			DeleteOnTermination: aws.Bool(v.DeleteOnTermination),
		}
		if v.VolumeType != "" {
			ebs.VolumeType = types.VolumeType(v.VolumeType)
		}
		if v.SnapshotID != "" {
			ebs.SnapshotId = aws.String(v.SnapshotID)
		}
		m.Ebs = ebs
		out = append(out, m)
	}
	return out
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
