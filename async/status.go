package async

import "github.com/khmm12/reachable"

// OldStatus is the legacy three-valued status. New code should use
// reachable.Status; OldStatus is kept for callbacks written against it.
type OldStatus uint8

const (
	OldAvailable OldStatus = iota
	OldNotAvailable
	OldUnknown
)

func (s OldStatus) String() string {
	switch s {
	case OldAvailable:
		return "available"
	case OldNotAvailable:
		return "not available"
	default:
		return "unknown"
	}
}

// Status converts s to the current representation. Distinct legacy values map
// to distinct statuses; values outside the enumeration are treated as
// OldUnknown.
func (s OldStatus) Status() reachable.Status {
	switch s {
	case OldAvailable:
		return reachable.Available()
	case OldNotAvailable:
		return reachable.Unavailable(reachable.ReasonUnspecified)
	default:
		return reachable.Unavailable(reachable.ReasonUnknown)
	}
}

// LegacyStatus converts s to the legacy representation. The unavailability
// reason is dropped except for ReasonUnknown; an invalid Status maps to
// OldUnknown.
func LegacyStatus(s reachable.Status) OldStatus {
	switch {
	case s.IsAvailable():
		return OldAvailable
	case !s.IsValid(), s.Reason() == reachable.ReasonUnknown:
		return OldUnknown
	default:
		return OldNotAvailable
	}
}
