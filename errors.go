package reachable

import (
	"errors"
	"fmt"
	"net/netip"
)

var (
	ErrTimeout           = errors.New("timeout")
	ErrConnectionRefused = errors.New("connection refused")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrNoRoute           = errors.New("no route to host")
	ErrResolve           = errors.New("resolution failed")
)

// ParseTargetError reports a malformed target specification. It is always
// detected before any network I/O.
type ParseTargetError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseTargetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse target %q: %s: %v", e.Input, e.Reason, e.Err)
	}

	return fmt.Sprintf("parse target %q: %s", e.Input, e.Reason)
}

func (e *ParseTargetError) Unwrap() error {
	return e.Err
}

func parseError(input, reason string, err error) *ParseTargetError {
	return &ParseTargetError{Input: input, Reason: reason, Err: err}
}

type ResolveErrorKind uint8

const (
	ResolveFailed ResolveErrorKind = iota
	ResolveNotFound
	ResolveTimeout
	ResolveTemporary
	ResolveNoAddresses
)

func (k ResolveErrorKind) String() string {
	switch k {
	case ResolveNotFound:
		return "not found"
	case ResolveTimeout:
		return "timeout"
	case ResolveTemporary:
		return "temporary failure"
	case ResolveNoAddresses:
		return "no addresses"
	default:
		return "failed"
	}
}

// ResolveTargetError reports a resolver failure or an empty answer set.
type ResolveTargetError struct {
	Host string
	Kind ResolveErrorKind
	Err  error
}

func (e *ResolveTargetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %s: %s: %v", e.Host, e.Kind, e.Err)
	}

	return fmt.Sprintf("resolve %s: %s", e.Host, e.Kind)
}

func (e *ResolveTargetError) Unwrap() error {
	return e.Err
}

func (e *ResolveTargetError) Is(target error) bool {
	return target == ErrResolve
}

type CheckErrorKind uint8

const (
	CheckFailed CheckErrorKind = iota
	CheckTimeout
	CheckConnectionRefused
	CheckPermissionDenied
	CheckNoRoute
	CheckResolve
)

func (k CheckErrorKind) String() string {
	switch k {
	case CheckTimeout:
		return "timeout"
	case CheckConnectionRefused:
		return "connection refused"
	case CheckPermissionDenied:
		return "permission denied"
	case CheckNoRoute:
		return "no route"
	case CheckResolve:
		return "resolution failure"
	default:
		return "check failed"
	}
}

// Reason returns the Status reason a failure of this kind is reported with.
func (k CheckErrorKind) Reason() Reason {
	switch k {
	case CheckTimeout:
		return ReasonTimeout
	case CheckConnectionRefused:
		return ReasonConnectionRefused
	case CheckPermissionDenied:
		return ReasonPermissionDenied
	case CheckNoRoute:
		return ReasonNoRoute
	case CheckResolve:
		return ReasonResolutionFailure
	default:
		return ReasonUnknown
	}
}

// CheckTargetError is a probe-level failure. Addr is the probed address and is
// invalid when the failure happened before an address was selected.
type CheckTargetError struct {
	Kind CheckErrorKind
	Addr netip.Addr
	Err  error
}

func (e *CheckTargetError) Error() string {
	msg := "check"
	if e.Addr.IsValid() {
		msg += " " + e.Addr.String()
	}

	msg += ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *CheckTargetError) Unwrap() error {
	return e.Err
}

func (e *CheckTargetError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == CheckTimeout
	case ErrConnectionRefused:
		return e.Kind == CheckConnectionRefused
	case ErrPermissionDenied:
		return e.Kind == CheckPermissionDenied
	case ErrNoRoute:
		return e.Kind == CheckNoRoute
	case ErrResolve:
		return e.Kind == CheckResolve
	}

	return false
}

// StatusFromError maps an error returned by a check or a probe to the Status
// CheckAvailability reports for it.
func StatusFromError(err error) Status {
	if err == nil {
		return Available()
	}

	var cerr *CheckTargetError
	if errors.As(err, &cerr) {
		return Unavailable(cerr.Kind.Reason())
	}

	var rerr *ResolveTargetError
	if errors.As(err, &rerr) {
		return Unavailable(ReasonResolutionFailure)
	}

	return Unavailable(ReasonUnknown)
}
