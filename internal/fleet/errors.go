package fleet

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies an engine failure.
type Kind string

// Engine failure kinds.
const (
	KindValidation   Kind = "validation"
	KindCapability   Kind = "capability"
	KindProvisioning Kind = "provisioning"
	KindTermination  Kind = "termination"
	KindAttribute    Kind = "attribute"
	KindSpotRequest  Kind = "spot_request"
	KindStateChange  Kind = "state_change"
	KindTimeout      Kind = "timeout"
)

// Error is an engine failure. Err, when set, is the underlying provider error.
type Error struct {
	Kind        Kind
	Op          string
	InstanceIDs []string
	Msg         string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if len(e.InstanceIDs) > 0 {
		fmt.Fprintf(&b, " (instances: %s)", strings.Join(e.InstanceIDs, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a provider error.
func Wrap(kind Kind, op string, err error, ids ...string) *Error {
	return &Error{Kind: kind, Op: op, Msg: "provider call failed", InstanceIDs: ids, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// TimeoutError builds a timeout failure naming the wall-clock cutoff.
func TimeoutError(op string, deadline time.Time, ids []string) *Error {
	return &Error{
		Kind:        KindTimeout,
		Op:          op,
		InstanceIDs: ids,
		Msg:         "wait timeout exceeded at " + deadline.Format(time.RFC1123),
	}
}

// ErrorCode is a provider-independent classification of an API failure.
type ErrorCode string

// Normalized provider error codes.
const (
	CodeUnknown            ErrorCode = ""
	CodeInstanceNotFound   ErrorCode = "instance_not_found"
	CodeMultipleInterfaces ErrorCode = "multiple_interfaces"
	CodeUnsupported        ErrorCode = "unsupported"
)

// APIError is a provider failure classified by an adapter.
type APIError struct {
	Code         ErrorCode
	ProviderCode string
	Message      string
	Err          error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ProviderCode != "" {
		return e.ProviderCode + ": " + msg
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err carries an *APIError with one of the codes.
func HasCode(err error, codes ...ErrorCode) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.Code == c {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err means the instance id is not (yet) visible.
func IsNotFound(err error) bool {
	return HasCode(err, CodeInstanceNotFound)
}

// IsMultipleInterfaces reports whether an instance-level attribute change was
// rejected because the instance has several network interfaces.
func IsMultipleInterfaces(err error) bool {
	return HasCode(err, CodeMultipleInterfaces)
}

// IsUnsupported reports whether the provider does not implement the operation.
func IsUnsupported(err error) bool {
	return HasCode(err, CodeUnsupported)
}

// ProviderCode returns the raw provider error code carried by err, if any.
func ProviderCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ProviderCode
	}
	return ""
}
