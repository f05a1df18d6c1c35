package ec2

import (
	"errors"

	"github.com/aws/smithy-go"
	"github.com/imamik/fleetctl/internal/fleet"
)

var errorCodes = map[string]fleet.ErrorCode{
	"InvalidInstanceID.NotFound":              fleet.CodeInstanceNotFound,
	"InvalidSpotInstanceRequestID.NotFound":   fleet.CodeInstanceNotFound,
	// Raised by ModifyInstanceAttribute for instances with several interfaces.
	"InvalidInstanceID":                       fleet.CodeMultipleInterfaces,
	"UnsupportedOperation":                    fleet.CodeUnsupported,
	"InvalidParameterCombination.Unsupported": fleet.CodeUnsupported,
}

// classify converts a smithy API error into a fleet.APIError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	return &fleet.APIError{
		Code:         errorCodes[apiErr.ErrorCode()],
		ProviderCode: apiErr.ErrorCode(),
		Message:      apiErr.ErrorMessage(),
		Err:          err,
	}
}
