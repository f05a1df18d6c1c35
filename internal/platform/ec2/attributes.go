package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/imamik/fleetctl/internal/fleet"
)

// GetAttribute reads sourceDestCheck or disableApiTermination.
func (c *Client) GetAttribute(ctx context.Context, id string, attr fleet.Attribute) (bool, error) {
	out, err := c.ec2.DescribeInstanceAttribute(ctx, &ec2.DescribeInstanceAttributeInput{
		InstanceId: aws.String(id),
		Attribute:  types.InstanceAttributeName(attr),
	})
	if err != nil {
		return false, classify(err)
	}
	switch attr {
	case fleet.AttrSourceDestCheck:
		if out.SourceDestCheck != nil {
			return aws.ToBool(out.SourceDestCheck.Value), nil
		}
	case fleet.AttrDisableAPITermination:
		if out.DisableApiTermination != nil {
			return aws.ToBool(out.DisableApiTermination.Value), nil
		}
	default:
		return false, fmt.Errorf("unknown attribute %s", attr)
	}
	return false, nil
}

// ModifyAttribute sets an instance-level safety attribute.
func (c *Client) ModifyAttribute(ctx context.Context, id string, attr fleet.Attribute, value bool) error {
	in := &ec2.ModifyInstanceAttributeInput{InstanceId: aws.String(id)}
	switch attr {
	case fleet.AttrSourceDestCheck:
		in.SourceDestCheck = &types.AttributeBooleanValue{Value: aws.Bool(value)}
	case fleet.AttrDisableAPITermination:
		in.DisableApiTermination = &types.AttributeBooleanValue{Value: aws.Bool(value)}
	default:
		return fmt.Errorf("unknown attribute %s", attr)
	}
	_, err := c.ec2.ModifyInstanceAttribute(ctx, in)
	return classify(err)
}

// ModifyInterfaceAttribute sets sourceDestCheck on one network interface.
func (c *Client) ModifyInterfaceAttribute(ctx context.Context, interfaceID string, attr fleet.Attribute, value bool) error {
	if attr != fleet.AttrSourceDestCheck {
		return &fleet.APIError{Code: fleet.CodeUnsupported, Message: string(attr) + " is not an interface attribute"}
	}
	_, err := c.ec2.ModifyNetworkInterfaceAttribute(ctx, &ec2.ModifyNetworkInterfaceAttributeInput{
		NetworkInterfaceId: aws.String(interfaceID),
		SourceDestCheck:    &types.AttributeBooleanValue{Value: aws.Bool(value)},
	})
	return classify(err)
}
