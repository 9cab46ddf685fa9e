package rtcapi

import (
	"errors"
	"fmt"
)

// VendorError is the common shape of a vendor rejection: the non-zero
// response code plus the vendor's message, carried verbatim to the caller.
// The vendor does not document which codes are transient, so no call in
// this layer is retried automatically; a caller wanting resilience wraps
// the client above this package.
type VendorError struct {
	Action  string
	Code    int
	Message string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%s: vendor code %d: %s", e.Action, e.Code, e.Message)
}

// RegistrationError means the vendor rejected the agent template. A later
// EnsureRegistered call may retry.
type RegistrationError struct {
	VendorError
}

// InstanceCreationError means the vendor refused to create an agent
// instance; the session start must abort.
type InstanceCreationError struct {
	VendorError
}

// InstanceTeardownError means the vendor refused to delete an agent
// instance. The caller still treats the session as ended; the instance is
// leaked vendor-side.
type InstanceTeardownError struct {
	VendorError
}

// SendError means the vendor refused an utterance. The optimistically
// displayed message stays in place; nothing is rolled back.
type SendError struct {
	VendorError
}

// IsVendorError reports whether err is a vendor rejection of any kind, as
// opposed to a transport or decoding failure.
func IsVendorError(err error) bool {
	var (
		reg      *RegistrationError
		create   *InstanceCreationError
		teardown *InstanceTeardownError
		send     *SendError
	)
	return errors.As(err, &reg) || errors.As(err, &create) ||
		errors.As(err, &teardown) || errors.As(err, &send)
}
