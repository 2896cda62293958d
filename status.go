package reachable

type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonTimeout
	ReasonConnectionRefused
	ReasonNoRoute
	ReasonPermissionDenied
	ReasonResolutionFailure
	// ReasonUnspecified is an unavailability without a recorded cause.
	ReasonUnspecified
	// ReasonUnknown means the check could not determine reachability.
	ReasonUnknown
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTimeout:
		return "timeout"
	case ReasonConnectionRefused:
		return "connection refused"
	case ReasonNoRoute:
		return "no route"
	case ReasonPermissionDenied:
		return "permission denied"
	case ReasonResolutionFailure:
		return "resolution failure"
	case ReasonUnspecified:
		return "unspecified"
	case ReasonUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Status is the immutable outcome of one check. The zero value is not a valid
// outcome; use Available or Unavailable.
type Status struct {
	available bool
	reason    Reason
}

func Available() Status {
	return Status{available: true}
}

// Unavailable returns an unavailable Status. ReasonNone is recorded as
// ReasonUnspecified so that an unavailable Status always carries a cause.
func Unavailable(reason Reason) Status {
	if reason == ReasonNone {
		reason = ReasonUnspecified
	}

	return Status{reason: reason}
}

func (s Status) IsAvailable() bool {
	return s.available
}

func (s Status) Reason() Reason {
	return s.reason
}

func (s Status) IsValid() bool {
	return s.available || s.reason != ReasonNone
}

func (s Status) String() string {
	if s.available {
		return "available"
	}

	if s.reason == ReasonNone {
		return "invalid"
	}

	return "unavailable (" + s.reason.String() + ")"
}
