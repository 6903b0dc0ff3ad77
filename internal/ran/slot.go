// Package ran holds the small value types shared by the PUCCH scheduling
// packages: slot numbers, RNTIs, and the symbol/PRB interval arithmetic used
// to describe resource footprints on the time-frequency grid.
package ran

import "fmt"

// Numerology is the 5G NR subcarrier-spacing configuration (μ), 0 through 4.
type Numerology uint8

const (
	Numerology15kHz Numerology = 0
	Numerology30kHz Numerology = 1
	Numerology60kHz Numerology = 2
	Numerology120kHz Numerology = 3
	Numerology240kHz Numerology = 4
)

// slotsPerHyperframe is 10240 subframes/hyperframe times 2^μ slots/subframe.
func slotsPerHyperframe(mu Numerology) uint32 {
	return 10240 << uint32(mu)
}

// Slot identifies a radio slot as (numerology, slot-in-hyperframe), per §6 of
// the wire format: "Slot is a (numerology 0-4, slot-in-hyperframe
// 0...10240*2^μ-1) pair; all ring indexing is on slot.to_uint() modulo ring
// size."
type Slot struct {
	Numerology Numerology
	Count      uint32
}

// NewSlot validates that count falls within the valid range for mu.
func NewSlot(mu Numerology, count uint32) (Slot, error) {
	if mu > Numerology240kHz {
		return Slot{}, fmt.Errorf("ran: invalid numerology %d", mu)
	}
	if count >= slotsPerHyperframe(mu) {
		return Slot{}, fmt.Errorf("ran: slot count %d out of range for numerology %d", count, mu)
	}
	return Slot{Numerology: mu, Count: count}, nil
}

// ToUint returns the value ring buffers index on, modulo their capacity.
func (s Slot) ToUint() uint32 {
	return s.Count
}

// Add returns the slot n positions later, wrapping at the hyperframe boundary.
func (s Slot) Add(n uint32) Slot {
	period := slotsPerHyperframe(s.Numerology)
	return Slot{Numerology: s.Numerology, Count: (s.Count + n) % period}
}

func (s Slot) String() string {
	return fmt.Sprintf("slot{mu=%d,count=%d}", s.Numerology, s.Count)
}
