package pucch

import "github.com/ranscale/pucchsched/internal/ran"

// ResourceID is a cell-scope-unique identifier for a PUCCH resource, stable
// for the lifetime of the cell configuration. Common resources and dedicated
// resources share one contiguous id space (common resources numbered first),
// so the Resource Manager and Allocator can both index resource-level state
// with a single array rather than juggling a pointer into the cell config
// (§9 design notes: "pointer-into-config... replaced by a stable
// cell-resource-id").
type ResourceID uint32

// FormatParams is the format-specific parameter block of a PUCCH resource.
// Only the fields relevant to a resource's Format are meaningful; the rest
// are zero. This is the Go rendering of the "tagged variant with five arms"
// from §9: one struct, dispatch on Format rather than on a type switch.
type FormatParams struct {
	// InitialCyclicShift is used by Format 0 alone, and by Format 1 together
	// with TimeDomainOCC.
	InitialCyclicShift uint8

	// TimeDomainOCC is Format 1's time-domain orthogonal cover code index.
	TimeDomainOCC uint8

	// MaxPRBs bounds the PRB count a Format-2/3 resource may grow to under
	// §4.3.4's recomputation.
	MaxPRBs uint16

	// OCCLength (∈ {2,4}) and OCCIndex are Format 4's spreading parameters.
	OCCLength uint8
	OCCIndex  uint8
}

// Resource is an immutable cell-level PUCCH resource descriptor. Instances
// are owned by the collision manager's resource table and referenced
// elsewhere only by ResourceID.
type Resource struct {
	ID ResourceID

	// UEAlias is the UE-scope name this resource is known by in the UE's
	// configuration (e.g. "set0[3]", "sr", "csi"). Nothing in this module
	// logs or reads it; the common resources carry an empty alias.
	UEAlias string

	Format Format

	StartPRB uint16
	// SecondHopPRB is non-nil when the resource uses intra-slot frequency
	// hopping; its presence is the definition of hopping for this resource.
	SecondHopPRB *uint16
	PRBLength    uint16

	StartSymbol uint8
	NumSymbols  uint8

	Params FormatParams
}

// FirstHop returns the PRB footprint of the resource's first (or only) hop.
func (r Resource) FirstHop() ran.PRBInterval {
	return ran.PRBInterval{Start: r.StartPRB, Length: r.PRBLength}
}

// SecondHop returns the PRB footprint of the second hop and true, or the
// zero interval and false if the resource does not hop.
func (r Resource) SecondHop() (ran.PRBInterval, bool) {
	if r.SecondHopPRB == nil {
		return ran.PRBInterval{}, false
	}
	return ran.PRBInterval{Start: *r.SecondHopPRB, Length: r.PRBLength}, true
}

// Symbols returns the resource's OFDM symbol footprint.
func (r Resource) Symbols() ran.SymbolInterval {
	return ran.SymbolInterval{Start: r.StartSymbol, Length: r.NumSymbols}
}

// Hops reports whether the resource uses intra-slot frequency hopping.
func (r Resource) Hops() bool {
	return r.SecondHopPRB != nil
}
