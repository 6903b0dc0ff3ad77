// Package grid defines the uplink resource-grid contract the PUCCH core
// consumes, plus a reference bitmap implementation for tests and the
// simulation CLI. The production resource grid lives outside this module;
// only its insert/collides/fill operations are consumed (spec §1, §6).
package grid

import "github.com/ranscale/pucchsched/internal/ran"

// Grid is the uplink resource-grid contract: a single (symbol, PRB)
// rectangle predicate and mutator, scoped to one slot. The allocator treats
// a Grid as exclusively owned by the caller for the duration of the call
// (§5 "shared-resource policy") — it reads Collides and writes Fill/Clear
// under that assumption, with no internal locking of its own.
type Grid interface {
	// Collides reports whether the rectangle (symbols × prb) overlaps any
	// existing grant already marked on the grid.
	Collides(symbols ran.SymbolInterval, prb ran.PRBInterval) bool
	// Fill marks the rectangle as occupied.
	Fill(symbols ran.SymbolInterval, prb ran.PRBInterval)
	// Clear unmarks the rectangle.
	Clear(symbols ran.SymbolInterval, prb ran.PRBInterval)
}
