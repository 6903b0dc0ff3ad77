package pucch

import "errors"

// Kind classifies the reason an allocator entry point refused a request.
// Kinds, not Go types: every local failure is carried as a Kind plus a
// human-readable reason, never a distinct error type the caller must type
// switch on (§7: "propagation policy: local errors are communicated by
// returning an empty optional (and a structured log line)").
type Kind uint8

const (
	// KindCapacityReached: the per-slot PUCCH+PUSCH grant limit was hit.
	KindCapacityReached Kind = iota
	// KindResourceBusy: the requested resource is owned by another UE, or
	// already used by this UE for an incompatible purpose.
	KindResourceBusy
	// KindCollisionOnGrid: the candidate rectangle overlaps an existing
	// non-PUCCH uplink grant.
	KindCollisionOnGrid
	// KindPayloadOverflow: after merge, UCI bits exceed the format maximum
	// or the code-rate ceiling.
	KindPayloadOverflow
)

func (k Kind) String() string {
	switch k {
	case KindCapacityReached:
		return "capacity_reached"
	case KindResourceBusy:
		return "resource_busy"
	case KindCollisionOnGrid:
		return "collision_on_grid"
	case KindPayloadOverflow:
		return "payload_overflow"
	default:
		return "unknown"
	}
}

// Sentinel errors for the local-failure kinds, wrapped by AllocError so
// callers can still errors.Is against them if they choose to, even though
// the primary failure channel is a (value, ok bool) return.
var (
	ErrCapacityReached  = errors.New("pucch: per-slot grant capacity reached")
	ErrResourceBusy     = errors.New("pucch: resource busy")
	ErrCollisionOnGrid  = errors.New("pucch: collision with existing uplink grant")
	ErrPayloadOverflow  = errors.New("pucch: UCI payload exceeds format capacity")
	ErrInvalidConfig    = errors.New("pucch: invalid configuration")
	ErrProtocolAssertion = errors.New("pucch: protocol assertion violated")
)

// AllocError is a local (recoverable) allocation failure.
type AllocError struct {
	Kind   Kind
	Reason string
}

func (e *AllocError) Error() string {
	return "pucch: " + e.Kind.String() + ": " + e.Reason
}

func (e *AllocError) Unwrap() error {
	switch e.Kind {
	case KindCapacityReached:
		return ErrCapacityReached
	case KindResourceBusy:
		return ErrResourceBusy
	case KindCollisionOnGrid:
		return ErrCollisionOnGrid
	case KindPayloadOverflow:
		return ErrPayloadOverflow
	default:
		return nil
	}
}

func newAllocError(kind Kind, reason string) *AllocError {
	return &AllocError{Kind: kind, Reason: reason}
}
