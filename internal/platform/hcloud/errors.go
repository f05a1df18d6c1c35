package hcloud

import (
	"errors"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/imamik/fleetctl/internal/fleet"
)

// isResourceLocked checks if an error indicates a resource is locked.
// Locked resources typically occur while another action runs on the server.
// These errors are retryable.
func isResourceLocked(err error) bool {
	return isHCloudErrorCode(err,
		hcloud.ErrorCodeLocked,
		hcloud.ErrorCodeConflict,
		hcloud.ErrorCodeResourceLocked,
		hcloud.ErrorCodeResourceUnavailable,
	)
}

// isInvalidParameter checks if an error indicates invalid parameters.
// These errors are fatal and should not be retried.
func isInvalidParameter(err error) bool {
	return isHCloudErrorCode(err,
		hcloud.ErrorCodeNotFound,
		hcloud.ErrorCodeInvalidInput,
		hcloud.ErrorCodeInvalidServerType,
	)
}

// isHCloudErrorCode checks if the error is an hcloud API error with one of the given codes.
func isHCloudErrorCode(err error, codes ...hcloud.ErrorCode) bool {
	if err == nil {
		return false
	}

	var hcloudErr hcloud.Error
	if errors.As(err, &hcloudErr) {
		for _, code := range codes {
			if hcloudErr.Code == code {
				return true
			}
		}
	}
	return false
}

// classify converts an hcloud error into a fleet.APIError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var hcloudErr hcloud.Error
	if !errors.As(err, &hcloudErr) {
		return err
	}
	code := fleet.CodeUnknown
	if hcloudErr.Code == hcloud.ErrorCodeNotFound {
		code = fleet.CodeInstanceNotFound
	}
	return &fleet.APIError{
		Code:         code,
		ProviderCode: string(hcloudErr.Code),
		Message:      hcloudErr.Message,
		Err:          err,
	}
}

func notFound(ids []string) error {
	return &fleet.APIError{
		Code:         fleet.CodeInstanceNotFound,
		ProviderCode: string(hcloud.ErrorCodeNotFound),
		Message:      fmt.Sprintf("servers %v do not exist", ids),
	}
}

func unsupported(what string) error {
	return &fleet.APIError{
		Code:    fleet.CodeUnsupported,
		Message: what + " is not supported by Hetzner Cloud",
	}
}
