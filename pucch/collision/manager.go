// Package collision implements the PUCCH Collision Manager: cell-level
// collision and multiplexing-region tables derived once from the cell
// configuration and then used, in O(1) per query, to decide whether two
// PUCCH resources may coexist in the same slot.
package collision

import (
	"fmt"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
)

const numCommonResources = 16

// footprint is the (format, hop geometry, symbols) identity two resources
// must share to ever be considered for the same multiplexing region, and is
// also used by the collision predicate to test "footprints differ in at
// least one hop".
type footprint struct {
	format      pucch.Format
	symStart    uint8
	symLen      uint8
	firstStart  uint16
	firstLen    uint16
	hasSecond   bool
	secondStart uint16
}

func footprintOf(r pucch.Resource) footprint {
	fp := footprint{
		format:     r.Format,
		symStart:   r.StartSymbol,
		symLen:     r.NumSymbols,
		firstStart: r.StartPRB,
		firstLen:   r.PRBLength,
	}
	if r.SecondHopPRB != nil {
		fp.hasSecond = true
		fp.secondStart = *r.SecondHopPRB
	}
	return fp
}

// Manager owns the immutable per-cell resource/collision/mux tables, plus a
// ring of per-slot "used" bitsets mirroring the Resource Manager's ring
// (§4.1: "for each slot in the ring, maintain a bitset used[cell_resource_id]").
type Manager struct {
	resources []ResourceInfo
	collides  [][]bool
	muxRegion []int // muxRegion[id] = region index, or -1 if none
	regions   [][]pucch.ResourceID

	ringSize uint32
	used     [][]bool // used[slotIdx][cell_resource_id]
}

// New builds the collision manager's tables from the cell's common-resource
// selection and its dedicated resource pool. ringSize must match the
// Resource Manager's ring capacity.
func New(pucchResourceCommon uint8, bwpSize uint16, dedicated []pucch.Resource, ringSize uint32) (*Manager, error) {
	if bwpSize == 0 {
		return nil, fmt.Errorf("%w: bwp size must be positive", pucch.ErrInvalidConfig)
	}
	if pucchResourceCommon > 15 {
		return nil, fmt.Errorf("%w: pucch_resource_common must be in [0,15], got %d", pucch.ErrInvalidConfig, pucchResourceCommon)
	}
	if ringSize == 0 {
		return nil, fmt.Errorf("%w: ring size must be positive", pucch.ErrInvalidConfig)
	}

	common := buildCommonResources(pucchResourceCommon, bwpSize)

	m := &Manager{ringSize: ringSize}
	m.resources = make([]ResourceInfo, 0, len(common)+len(dedicated))

	for _, r := range common {
		m.resources = append(m.resources, ResourceInfo{
			Resource:       r,
			MultiplexIndex: multiplexIndexOf(r),
			IsCommon:       true,
		})
	}
	nextID := pucch.ResourceID(numCommonResources)
	for _, r := range dedicated {
		r.ID = nextID
		m.resources = append(m.resources, ResourceInfo{
			Resource:       r,
			MultiplexIndex: multiplexIndexOf(r),
			IsCommon:       false,
		})
		nextID++
	}

	m.buildCollisionMatrix()
	m.buildMuxRegions()

	m.used = make([][]bool, ringSize)
	for i := range m.used {
		m.used[i] = make([]bool, len(m.resources))
	}

	return m, nil
}

// NumResources returns the size of the contiguous cell-resource-id space.
func (m *Manager) NumResources() int {
	return len(m.resources)
}

// ResourceByID returns the resource info for id.
func (m *Manager) ResourceByID(id pucch.ResourceID) (ResourceInfo, bool) {
	if int(id) >= len(m.resources) {
		return ResourceInfo{}, false
	}
	return m.resources[id], true
}

// CommonResources returns the 16 common resources, ordered by r_PUCCH.
func (m *Manager) CommonResources() []ResourceInfo {
	return append([]ResourceInfo(nil), m.resources[:numCommonResources]...)
}

// collidePredicate implements §4.1's symbol-level collision rule: two
// resources collide iff their footprints overlap AND either they have
// different formats, or their footprints differ in at least one hop, or
// they share format and footprint but have the same multiplexing index.
func collidePredicate(a, b ResourceInfo) bool {
	if !footprintsOverlap(a.Resource, b.Resource) {
		return false
	}
	if a.Format != b.Format {
		return true
	}
	if footprintOf(a.Resource) != footprintOf(b.Resource) {
		return true
	}
	return a.MultiplexIndex == b.MultiplexIndex
}

func footprintsOverlap(a, b pucch.Resource) bool {
	if !a.Symbols().Overlaps(b.Symbols()) {
		return false
	}
	aHops := hopsOf(a)
	bHops := hopsOf(b)
	for _, ah := range aHops {
		for _, bh := range bHops {
			if ah.Overlaps(bh) {
				return true
			}
		}
	}
	return false
}

func hopsOf(r pucch.Resource) []ran.PRBInterval {
	hops := []ran.PRBInterval{r.FirstHop()}
	if second, ok := r.SecondHop(); ok {
		hops = append(hops, second)
	}
	return hops
}

func (m *Manager) buildCollisionMatrix() {
	n := len(m.resources)
	m.collides = make([][]bool, n)
	for i := range m.collides {
		m.collides[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if collidePredicate(m.resources[i], m.resources[j]) {
				m.collides[i][j] = true
				m.collides[j][i] = true
			}
		}
	}
}

// buildMuxRegions groups resources sharing an identical footprint into
// multiplexing regions; a group becomes a region only if it has ≥2 members
// (§4.1's "after the collision matrix is built, group resources by (format,
// first-hop grant, second-hop grant)").
func (m *Manager) buildMuxRegions() {
	groups := map[footprint][]pucch.ResourceID{}
	for _, r := range m.resources {
		fp := footprintOf(r.Resource)
		groups[fp] = append(groups[fp], r.ID)
	}

	m.muxRegion = make([]int, len(m.resources))
	for i := range m.muxRegion {
		m.muxRegion[i] = -1
	}

	for fp, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		if !fp.format.MultiplexingCapable() {
			// Format 2/3 resources always share multiplexing index 0, so
			// an identical footprint never yields orthogonal sequences;
			// they are not grouped into a region (§4.1).
			continue
		}
		regionIdx := len(m.regions)
		m.regions = append(m.regions, ids)
		for _, id := range ids {
			m.muxRegion[id] = regionIdx
		}
	}
}

// MultiplexRegion returns the other members of id's multiplexing region
// (not including id itself), or nil if id is not part of one.
func (m *Manager) MultiplexRegion(id pucch.ResourceID) []pucch.ResourceID {
	idx := m.muxRegion[id]
	if idx < 0 {
		return nil
	}
	members := m.regions[idx]
	out := make([]pucch.ResourceID, 0, len(members)-1)
	for _, member := range members {
		if member != id {
			out = append(out, member)
		}
	}
	return out
}

// Collides reports whether resources a and b collide, per the precomputed
// matrix.
func (m *Manager) Collides(a, b pucch.ResourceID) bool {
	return m.collides[a][b]
}

func (m *Manager) slotIndex(slot ran.Slot) uint32 {
	return slot.ToUint() % m.ringSize
}

// TryReserve succeeds iff no resource currently used on this slot collides
// with id; on success it marks id used. The only failure this reports is a
// PUCCH-PUCCH collision — collision with a non-PUCCH uplink grant is the
// caller's responsibility via the shared resource grid (§4.1 "failure
// semantics").
func (m *Manager) TryReserve(slot ran.Slot, id pucch.ResourceID) bool {
	idx := m.slotIndex(slot)
	row := m.collides[id]
	usedSlot := m.used[idx]
	for other, used := range usedSlot {
		if used && row[other] {
			return false
		}
	}
	usedSlot[id] = true
	return true
}

// Free clears id's usage mark on slot.
func (m *Manager) Free(slot ran.Slot, id pucch.ResourceID) {
	m.used[m.slotIndex(slot)][id] = false
}

// ClearSlot clears every usage mark on slot (called when the slot is
// indicated as transmitted).
func (m *Manager) ClearSlot(slot ran.Slot) {
	row := m.used[m.slotIndex(slot)]
	for i := range row {
		row[i] = false
	}
}

// Stop resets every slot's usage marks.
func (m *Manager) Stop() {
	for _, row := range m.used {
		for i := range row {
			row[i] = false
		}
	}
}
