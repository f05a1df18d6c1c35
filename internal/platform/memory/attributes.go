package memory

import (
	"context"
	"fmt"

	"github.com/imamik/fleetctl/internal/fleet"
)

// GetAttribute reads a safety attribute.
func (s *Cloud) GetAttribute(ctx context.Context, id string, attr fleet.Attribute) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.find(id)
	if err != nil {
		return false, err
	}
	switch attr {
	case fleet.AttrSourceDestCheck:
		return inst.SourceDestCheck, nil
	case fleet.AttrDisableAPITermination:
		return inst.terminationProtection, nil
	}
	return false, fmt.Errorf("unknown attribute %s", attr)
}

// ModifyAttribute sets an instance-level attribute. Source/dest check is
// refused for instances with several interfaces.
func (s *Cloud) ModifyAttribute(ctx context.Context, id string, attr fleet.Attribute, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := s.find(id)
	if err != nil {
		return err
	}
	switch attr {
	case fleet.AttrSourceDestCheck:
		if len(inst.NetworkInterfaces) > 1 {
			return &fleet.APIError{
				Code:         fleet.CodeMultipleInterfaces,
				ProviderCode: "InvalidInstanceID",
				Message:      fmt.Sprintf("There are multiple interfaces attached to instance '%s'", id),
			}
		}
		inst.SourceDestCheck = value
		for i := range inst.NetworkInterfaces {
			inst.NetworkInterfaces[i].SourceDestCheck = value
		}
	case fleet.AttrDisableAPITermination:
		inst.terminationProtection = value
	default:
		return fmt.Errorf("unknown attribute %s", attr)
	}
	return nil
}

// ModifyInterfaceAttribute sets source/dest check on one interface. The
// instance-level flag holds only while every interface has it set.
func (s *Cloud) ModifyInterfaceAttribute(ctx context.Context, interfaceID string, attr fleet.Attribute, value bool) error {
	if attr != fleet.AttrSourceDestCheck {
		return &fleet.APIError{Code: fleet.CodeUnsupported, Message: string(attr) + " is not an interface attribute"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		inst := s.instances[id]
		for i := range inst.NetworkInterfaces {
			if inst.NetworkInterfaces[i].ID != interfaceID {
				continue
			}
			inst.NetworkInterfaces[i].SourceDestCheck = value
			all := true
			for _, ni := range inst.NetworkInterfaces {
				all = all && ni.SourceDestCheck
			}
			inst.SourceDestCheck = all
			return nil
		}
	}
	return notFound("InvalidNetworkInterfaceID.NotFound", interfaceID)
}
