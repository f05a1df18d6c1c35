package reconcile

import (
	"context"

	"github.com/imamik/fleetctl/internal/fleet"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// AttributeReconciler corrects safety attributes that differ from the
// desired values. Unset desired values are never forced to a default.
type AttributeReconciler struct {
	api fleet.API
}

// NewAttributeReconciler creates an AttributeReconciler.
func NewAttributeReconciler(api fleet.API) *AttributeReconciler {
	return &AttributeReconciler{api: api}
}

// Reconcile compares the live attributes of inst against desired and issues
// a correction only on mismatch. It reports whether anything was changed.
func (r *AttributeReconciler) Reconcile(ctx context.Context, inst fleet.Instance, desired fleet.DesiredAttributes) (bool, error) {
	changed := false

	// Source/destination check only exists for instances in a VPC.
	if desired.SourceDestCheck != nil && inst.VPCID != "" {
		c, err := r.reconcileSourceDestCheck(ctx, inst, *desired.SourceDestCheck)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}

	if desired.DisableAPITermination != nil {
		want := *desired.DisableAPITermination
		live, err := r.api.GetAttribute(ctx, inst.ID, fleet.AttrDisableAPITermination)
		if err != nil {
			return changed, attributeError(inst.ID, fleet.AttrDisableAPITermination, err)
		}
		if live != want {
			if err := r.api.ModifyAttribute(ctx, inst.ID, fleet.AttrDisableAPITermination, want); err != nil {
				return changed, attributeError(inst.ID, fleet.AttrDisableAPITermination, err)
			}
			log.FromContext(ctx).Info("updated termination protection", "instance", inst.ID, "value", want)
			changed = true
		}
	}

	return changed, nil
}

func (r *AttributeReconciler) reconcileSourceDestCheck(ctx context.Context, inst fleet.Instance, want bool) (bool, error) {
	live, err := r.api.GetAttribute(ctx, inst.ID, fleet.AttrSourceDestCheck)
	if err == nil {
		if live == want {
			return false, nil
		}
		err = r.api.ModifyAttribute(ctx, inst.ID, fleet.AttrSourceDestCheck, want)
		if err == nil {
			log.FromContext(ctx).Info("updated source/dest check", "instance", inst.ID, "value", want)
			return true, nil
		}
	}
	if !fleet.IsMultipleInterfaces(err) {
		return false, attributeError(inst.ID, fleet.AttrSourceDestCheck, err)
	}

	// Instances with several interfaces carry the flag per interface.
	changed := false
	for _, iface := range inst.NetworkInterfaces {
		if iface.SourceDestCheck == want {
			continue
		}
		if err := r.api.ModifyInterfaceAttribute(ctx, iface.ID, fleet.AttrSourceDestCheck, want); err != nil {
			return changed, attributeError(inst.ID, fleet.AttrSourceDestCheck, err)
		}
		log.FromContext(ctx).Info("updated interface source/dest check", "instance", inst.ID, "interface", iface.ID, "value", want)
		changed = true
	}
	return changed, nil
}

func attributeError(id string, attr fleet.Attribute, err error) *fleet.Error {
	return &fleet.Error{
		Kind:        fleet.KindAttribute,
		Op:          "reconcile " + string(attr),
		InstanceIDs: []string{id},
		Msg:         "failed to handle attribute state",
		Err:         err,
	}
}
