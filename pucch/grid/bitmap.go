package grid

import "github.com/ranscale/pucchsched/internal/ran"

const symbolsPerSlot = 14

// Bitmap is a reference Grid implementation: a dense symbol×PRB occupancy
// matrix for one slot's BWP. It is not meant for production use (a real
// resource grid additionally tracks PDSCH/PUSCH/PDCCH allocations and PHY
// constraints); it exists so tests and cmd/pucchsim can exercise the
// allocator against a real Grid without a production grid implementation.
type Bitmap struct {
	numPRB uint16
	cells  [][]bool // cells[symbol][prb]
}

// NewBitmap returns an empty Bitmap sized to numPRB PRBs over one slot.
func NewBitmap(numPRB uint16) *Bitmap {
	cells := make([][]bool, symbolsPerSlot)
	for i := range cells {
		cells[i] = make([]bool, numPRB)
	}
	return &Bitmap{numPRB: numPRB, cells: cells}
}

func (b *Bitmap) Collides(symbols ran.SymbolInterval, prb ran.PRBInterval) bool {
	for s := symbols.Start; s < symbols.End(); s++ {
		row := b.cells[s]
		for p := prb.Start; p < prb.End() && p < b.numPRB; p++ {
			if row[p] {
				return true
			}
		}
	}
	return false
}

func (b *Bitmap) Fill(symbols ran.SymbolInterval, prb ran.PRBInterval) {
	b.setRange(symbols, prb, true)
}

func (b *Bitmap) Clear(symbols ran.SymbolInterval, prb ran.PRBInterval) {
	b.setRange(symbols, prb, false)
}

func (b *Bitmap) setRange(symbols ran.SymbolInterval, prb ran.PRBInterval, v bool) {
	for s := symbols.Start; s < symbols.End(); s++ {
		row := b.cells[s]
		for p := prb.Start; p < prb.End() && p < b.numPRB; p++ {
			row[p] = v
		}
	}
}

// Reset clears every cell, equivalent to a fresh Bitmap for the same BWP
// size. Used by the simulation CLI between slots that fall out of the ring
// window.
func (b *Bitmap) Reset() {
	for _, row := range b.cells {
		for i := range row {
			row[i] = false
		}
	}
}
