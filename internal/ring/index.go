package ring

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/slices"
)

// Placement is one virtual node: a position on the ring owned by a physical
// node. Replica is the index the position was derived from.
type Placement struct {
	Position uint64
	Owner    string
	Replica  int
}

func (p Placement) String() string {
	return fmt.Sprintf("%s#%d@%016x", p.Owner, p.Replica, p.Position)
}

// comparePlacements orders by position, then owner, then replica index.
// Two placements that hash to the same position therefore always sort the
// same way, whatever order they were inserted in.
func comparePlacements(a, b Placement) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	if c := strings.Compare(a.Owner, b.Owner); c != 0 {
		return c
	}
	return cmp.Compare(a.Replica, b.Replica)
}

// entry is the stored form of a Placement. owner indexes Index.owners.
type entry struct {
	pos     uint64
	owner   uint32
	replica uint32
}

// CollisionFunc is called when a placement lands on a position that another
// placement already occupies.
type CollisionFunc func(existing, incoming Placement)

// Index is a sorted array of placements plus a compact owner table.
//
// Lookups binary search the contiguous entries slice and never touch a
// map or pointer. Owners are interned; a slot is recycled once the last
// entry referring to it is removed.
//
// Index is not safe for concurrent use. Ring serializes access to it.
type Index struct {
	entries []entry

	owners   []string          // slot -> owner ID, "" for free slots
	refs     []int             // slot -> number of entries
	ownerIdx map[string]uint32 // owner ID -> slot, live owners only
	free     []uint32

	onCollision CollisionFunc
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		ownerIdx: make(map[string]uint32),
	}
}

// SetCollisionHook installs fn as the collision observer. nil disables it.
func (x *Index) SetCollisionHook(fn CollisionFunc) {
	x.onCollision = fn
}

// Len returns the number of stored placements.
func (x *Index) Len() int {
	return len(x.entries)
}

// Owners returns the number of distinct owners present.
func (x *Index) Owners() int {
	return len(x.ownerIdx)
}

// Insert adds a single placement, keeping the index sorted.
func (x *Index) Insert(p Placement) error {
	if err := validatePlacement(p); err != nil {
		return err
	}

	idx := x.search(p)
	if idx < len(x.entries) && x.compare(x.entries[idx], p) == 0 {
		return fmt.Errorf("insert %s: %w", p, ErrPlacementExists)
	}

	e := entry{pos: p.Position, owner: x.intern(p.Owner), replica: uint32(p.Replica)}
	x.entries = slices.Insert(x.entries, idx, e)

	// The new entry sorts after any placement with the same position and a
	// smaller key, and before those with a larger key.
	if idx > 0 && x.entries[idx-1].pos == p.Position {
		x.collided(x.placement(x.entries[idx-1]), p)
	} else if idx+1 < len(x.entries) && x.entries[idx+1].pos == p.Position {
		x.collided(x.placement(x.entries[idx+1]), p)
	}
	return nil
}

// InsertBatch adds all placements or none of them. The batch is sorted and
// merged into the index in a single pass.
func (x *Index) InsertBatch(ps []Placement) error {
	if len(ps) == 0 {
		return nil
	}

	batch := slices.Clone(ps)
	slices.SortFunc(batch, comparePlacements)

	for i, p := range batch {
		if err := validatePlacement(p); err != nil {
			return err
		}
		if i > 0 && comparePlacements(batch[i-1], p) == 0 {
			return fmt.Errorf("insert %s: duplicated in batch: %w", p, ErrPlacementExists)
		}
		if idx := x.search(p); idx < len(x.entries) && x.compare(x.entries[idx], p) == 0 {
			return fmt.Errorf("insert %s: %w", p, ErrPlacementExists)
		}
	}

	merged := make([]entry, 0, len(x.entries)+len(batch))
	var (
		prev      entry
		prevFresh bool
	)
	push := func(e entry, fresh bool) {
		if len(merged) > 0 && prev.pos == e.pos && (fresh || prevFresh) {
			existing, incoming := x.placement(prev), x.placement(e)
			if prevFresh && !fresh {
				existing, incoming = incoming, existing
			}
			x.collided(existing, incoming)
		}
		merged = append(merged, e)
		prev, prevFresh = e, fresh
	}

	i, j := 0, 0
	for i < len(x.entries) || j < len(batch) {
		if j >= len(batch) || (i < len(x.entries) && x.compare(x.entries[i], batch[j]) < 0) {
			push(x.entries[i], false)
			i++
			continue
		}
		p := batch[j]
		push(entry{pos: p.Position, owner: x.intern(p.Owner), replica: uint32(p.Replica)}, true)
		j++
	}

	x.entries = merged
	return nil
}

// Remove deletes the exact placement. Removing a placement the index does
// not hold is reported as ErrPlacementNotFound.
func (x *Index) Remove(p Placement) error {
	idx, ok := x.find(p)
	if !ok {
		return fmt.Errorf("remove %s: %w", p, ErrPlacementNotFound)
	}
	owner := x.entries[idx].owner
	x.entries = slices.Delete(x.entries, idx, idx+1)
	x.release(owner)
	return nil
}

// RemoveBatch deletes all placements or none of them.
func (x *Index) RemoveBatch(ps []Placement) error {
	if len(ps) == 0 {
		return nil
	}

	drop := make([]int, 0, len(ps))
	for _, p := range ps {
		idx, ok := x.find(p)
		if !ok {
			return fmt.Errorf("remove %s: %w", p, ErrPlacementNotFound)
		}
		drop = append(drop, idx)
	}
	slices.Sort(drop)
	for i := 1; i < len(drop); i++ {
		if drop[i] == drop[i-1] {
			return fmt.Errorf("remove %s: duplicated in batch: %w", x.placement(x.entries[drop[i]]), ErrPlacementNotFound)
		}
	}

	kept := x.entries[:0]
	d := 0
	for i, e := range x.entries {
		if d < len(drop) && drop[d] == i {
			d++
			x.release(e.owner)
			continue
		}
		kept = append(kept, e)
	}
	x.entries = kept
	return nil
}

// Successor returns the owner of the first placement at or after pos,
// wrapping to the lowest position. ok is false only when the index is empty.
func (x *Index) Successor(pos uint64) (owner string, ok bool) {
	if len(x.entries) == 0 {
		return "", false
	}
	return x.owners[x.entries[x.successorIndex(pos)].owner], true
}

// SuccessorsDistinct walks clockwise from Successor(pos) and collects owners
// in encounter order, skipping owners already collected. It stops after
// count owners or once every owner present has been seen.
func (x *Index) SuccessorsDistinct(pos uint64, count int) []string {
	if count <= 0 || len(x.entries) == 0 {
		return nil
	}
	want := min(count, len(x.ownerIdx))

	start := x.successorIndex(pos)
	seen := make([]uint32, 0, want)
	result := make([]string, 0, want)
	for i := 0; i < len(x.entries) && len(result) < want; i++ {
		e := x.entries[(start+i)%len(x.entries)]
		if slices.Contains(seen, e.owner) {
			continue
		}
		seen = append(seen, e.owner)
		result = append(result, x.owners[e.owner])
	}
	return result
}

// Placements returns every placement in ring order.
func (x *Index) Placements() []Placement {
	out := make([]Placement, len(x.entries))
	for i, e := range x.entries {
		out[i] = x.placement(e)
	}
	return out
}

// Collisions counts placements that share their position with the
// placement before them.
func (x *Index) Collisions() int {
	n := 0
	for i := 1; i < len(x.entries); i++ {
		if x.entries[i].pos == x.entries[i-1].pos {
			n++
		}
	}
	return n
}

// Reset removes every placement and owner.
func (x *Index) Reset() {
	x.entries = nil
	x.owners = nil
	x.refs = nil
	x.free = nil
	x.ownerIdx = make(map[string]uint32)
}

func (x *Index) successorIndex(pos uint64) int {
	idx := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].pos >= pos
	})
	if idx >= len(x.entries) {
		idx = 0
	}
	return idx
}

// search returns the first index whose entry does not sort before p.
func (x *Index) search(p Placement) int {
	return sort.Search(len(x.entries), func(i int) bool {
		return x.compare(x.entries[i], p) >= 0
	})
}

func (x *Index) find(p Placement) (int, bool) {
	idx := x.search(p)
	if idx < len(x.entries) && x.compare(x.entries[idx], p) == 0 {
		return idx, true
	}
	return idx, false
}

func (x *Index) compare(e entry, p Placement) int {
	return comparePlacements(x.placement(e), p)
}

func (x *Index) placement(e entry) Placement {
	return Placement{Position: e.pos, Owner: x.owners[e.owner], Replica: int(e.replica)}
}

func (x *Index) intern(owner string) uint32 {
	if slot, ok := x.ownerIdx[owner]; ok {
		x.refs[slot]++
		return slot
	}

	var slot uint32
	if n := len(x.free); n > 0 {
		slot = x.free[n-1]
		x.free = x.free[:n-1]
		x.owners[slot] = owner
		x.refs[slot] = 1
	} else {
		slot = uint32(len(x.owners))
		x.owners = append(x.owners, owner)
		x.refs = append(x.refs, 1)
	}
	x.ownerIdx[owner] = slot
	return slot
}

func (x *Index) release(slot uint32) {
	x.refs[slot]--
	if x.refs[slot] > 0 {
		return
	}
	delete(x.ownerIdx, x.owners[slot])
	x.owners[slot] = ""
	x.free = append(x.free, slot)
}

func (x *Index) collided(existing, incoming Placement) {
	if x.onCollision != nil {
		x.onCollision(existing, incoming)
	}
}

func validatePlacement(p Placement) error {
	if p.Owner == "" {
		return fmt.Errorf("placement at %016x: %w", p.Position, ErrEmptyNodeID)
	}
	if p.Replica < 0 || uint64(p.Replica) > uint64(^uint32(0)) {
		return fmt.Errorf("placement %s: replica index out of range", p)
	}
	return nil
}
