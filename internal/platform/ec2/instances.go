package ec2

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/imamik/fleetctl/internal/fleet"
)

// ListInstances describes instances matching filter, following pagination.
func (c *Client) ListInstances(ctx context.Context, filter fleet.Filter) ([]fleet.Instance, error) {
	input := &ec2.DescribeInstancesInput{
		InstanceIds: filter.IDs,
		Filters:     toFilters(filter),
	}

	var out []fleet.Instance
	pages := ec2.NewDescribeInstancesPaginator(c.ec2, input)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, r := range page.Reservations {
			for _, inst := range r.Instances {
				out = append(out, toInstance(inst))
			}
		}
	}
	return out, nil
}

// CreateInstances runs exactly spec.Count on-demand instances.
func (c *Client) CreateInstances(ctx context.Context, spec fleet.LaunchSpec) ([]fleet.Instance, error) {
	out, err := c.ec2.RunInstances(ctx, runInstancesInput(spec))
	if err != nil {
		return nil, classify(err)
	}
	instances := make([]fleet.Instance, 0, len(out.Instances))
	for _, inst := range out.Instances {
		instances = append(instances, toInstance(inst))
	}
	return instances, nil
}

func runInstancesInput(spec fleet.LaunchSpec) *ec2.RunInstancesInput {
	in := &ec2.RunInstancesInput{
		ImageId:             aws.String(spec.ImageID),
		InstanceType:        types.InstanceType(spec.InstanceType),
		MinCount:            aws.Int32(spec.Count),
		MaxCount:            aws.Int32(spec.Count),
		KeyName:             optionalString(spec.KeyName),
		ClientToken:         optionalString(spec.ClientToken),
		KernelId:            optionalString(spec.KernelID),
		RamdiskId:           optionalString(spec.RamdiskID),
		EbsOptimized:        aws.Bool(spec.EBSOptimized),
		Monitoring:          &types.RunInstancesMonitoringEnabled{Enabled: aws.Bool(spec.Monitoring)},
		BlockDeviceMappings: toBlockDevices(spec.Volumes),
		Placement: &types.Placement{
			AvailabilityZone: optionalString(spec.Zone),
			GroupName:        optionalString(spec.PlacementGroup),
			Tenancy:          types.Tenancy(spec.Tenancy),
		},
	}
	if spec.UserData != "" {
		in.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(spec.UserData)))
	}
	if spec.InstanceProfileName != "" {
		in.IamInstanceProfile = &types.IamInstanceProfileSpecification{Name: aws.String(spec.InstanceProfileName)}
	}
	if spec.ShutdownBehavior != "" {
		in.InstanceInitiatedShutdownBehavior = types.ShutdownBehavior(spec.ShutdownBehavior)
	}

	switch {
	case len(spec.NetworkInterfaceIDs) > 0:
		in.NetworkInterfaces = attachInterfaces(spec.NetworkInterfaceIDs)
	case spec.AssignPublicIP:
		in.NetworkInterfaces = []types.InstanceNetworkInterfaceSpecification{publicInterface(spec)}
	default:
		in.SubnetId = optionalString(spec.SubnetID)
		in.PrivateIpAddress = optionalString(spec.PrivateIP)
		in.SecurityGroupIds = spec.SecurityGroupIDs
		in.SecurityGroups = spec.SecurityGroupNames
	}
	return in
}

func attachInterfaces(ids []string) []types.InstanceNetworkInterfaceSpecification {
	out := make([]types.InstanceNetworkInterfaceSpecification, 0, len(ids))
	for i, id := range ids {
		out = append(out, types.InstanceNetworkInterfaceSpecification{
			DeviceIndex:        aws.Int32(int32(i)),
			NetworkInterfaceId: aws.String(id),
		})
	}
	return out
}

// publicInterface describes the primary interface of an instance that needs
// a public address. Subnet and groups move onto the interface.
func publicInterface(spec fleet.LaunchSpec) types.InstanceNetworkInterfaceSpecification {
	return types.InstanceNetworkInterfaceSpecification{
		DeviceIndex:              aws.Int32(0),
		SubnetId:                 aws.String(spec.SubnetID),
		AssociatePublicIpAddress: aws.Bool(true),
		Groups:                   spec.SecurityGroupIDs,
		PrivateIpAddress:         optionalString(spec.PrivateIP),
		DeleteOnTermination:      aws.Bool(true),
	}
}

// TerminateInstance terminates one instance.
func (c *Client) TerminateInstance(ctx context.Context, id string) error {
	_, err := c.ec2.TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{id}})
	return classify(err)
}

// StartInstance starts one stopped instance.
func (c *Client) StartInstance(ctx context.Context, id string) error {
	_, err := c.ec2.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{id}})
	return classify(err)
}

// StopInstance stops one running instance.
func (c *Client) StopInstance(ctx context.Context, id string) error {
	_, err := c.ec2.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{id}})
	return classify(err)
}

// RebootInstance reboots one instance.
func (c *Client) RebootInstance(ctx context.Context, id string) error {
	_, err := c.ec2.RebootInstances(ctx, &ec2.RebootInstancesInput{InstanceIds: []string{id}})
	return classify(err)
}

// CreateTags adds or overwrites tags on every instance.
func (c *Client) CreateTags(ctx context.Context, ids []string, tags map[string]string) error {
	_, err := c.ec2.CreateTags(ctx, &ec2.CreateTagsInput{Resources: ids, Tags: toTags(tags)})
	return classify(err)
}

// SnapshotSize returns the volume size of a snapshot in GiB.
func (c *Client) SnapshotSize(ctx context.Context, snapshotID string) (int32, error) {
	out, err := c.ec2.DescribeSnapshots(ctx, &ec2.DescribeSnapshotsInput{SnapshotIds: []string{snapshotID}})
	if err != nil {
		return 0, classify(err)
	}
	if len(out.Snapshots) == 0 {
		return 0, fmt.Errorf("snapshot not found: %s", snapshotID)
	}
	return aws.ToInt32(out.Snapshots[0].VolumeSize), nil
}
