package ec2

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/imamik/fleetctl/internal/fleet"
)

// RequestSpotInstances submits spec.Count spot requests at the bid price.
func (c *Client) RequestSpotInstances(ctx context.Context, bid fleet.SpotOptions, spec fleet.LaunchSpec) ([]fleet.SpotRequest, error) {
	out, err := c.ec2.RequestSpotInstances(ctx, requestSpotInput(bid, spec))
	if err != nil {
		return nil, classify(err)
	}
	requests := make([]fleet.SpotRequest, 0, len(out.SpotInstanceRequests))
	for _, r := range out.SpotInstanceRequests {
		requests = append(requests, toSpotRequest(r))
	}
	return requests, nil
}

func requestSpotInput(bid fleet.SpotOptions, spec fleet.LaunchSpec) *ec2.RequestSpotInstancesInput {
	launch := &types.RequestSpotLaunchSpecification{
		ImageId:             aws.String(spec.ImageID),
		InstanceType:        types.InstanceType(spec.InstanceType),
		KeyName:             optionalString(spec.KeyName),
		KernelId:            optionalString(spec.KernelID),
		RamdiskId:           optionalString(spec.RamdiskID),
		EbsOptimized:        aws.Bool(spec.EBSOptimized),
		Monitoring:          &types.RunInstancesMonitoringEnabled{Enabled: aws.Bool(spec.Monitoring)},
		BlockDeviceMappings: toBlockDevices(spec.Volumes),
	}
	if spec.Zone != "" || spec.PlacementGroup != "" {
		launch.Placement = &types.SpotPlacement{
			AvailabilityZone: optionalString(spec.Zone),
			GroupName:        optionalString(spec.PlacementGroup),
		}
	}
	if spec.UserData != "" {
		launch.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(spec.UserData)))
	}
	if spec.InstanceProfileName != "" {
		launch.IamInstanceProfile = &types.IamInstanceProfileSpecification{Name: aws.String(spec.InstanceProfileName)}
	}

	switch {
	case len(spec.NetworkInterfaceIDs) > 0:
		launch.NetworkInterfaces = attachInterfaces(spec.NetworkInterfaceIDs)
	case spec.AssignPublicIP:
		launch.NetworkInterfaces = []types.InstanceNetworkInterfaceSpecification{publicInterface(spec)}
	default:
		launch.SubnetId = optionalString(spec.SubnetID)
		launch.SecurityGroupIds = spec.SecurityGroupIDs
		launch.SecurityGroups = spec.SecurityGroupNames
	}

	in := &ec2.RequestSpotInstancesInput{
		SpotPrice:           aws.String(bid.Price),
		InstanceCount:       aws.Int32(spec.Count),
		LaunchGroup:         optionalString(bid.LaunchGroup),
		ClientToken:         optionalString(spec.ClientToken),
		LaunchSpecification: launch,
	}
	if bid.Type != "" {
		in.Type = types.SpotInstanceType(bid.Type)
	}
	return in
}

// ListSpotRequests describes every spot request visible to the caller.
func (c *Client) ListSpotRequests(ctx context.Context) ([]fleet.SpotRequest, error) {
	var out []fleet.SpotRequest
	pages := ec2.NewDescribeSpotInstanceRequestsPaginator(c.ec2, &ec2.DescribeSpotInstanceRequestsInput{})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, r := range page.SpotInstanceRequests {
			out = append(out, toSpotRequest(r))
		}
	}
	return out, nil
}
