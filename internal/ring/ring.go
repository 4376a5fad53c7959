package ring

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"kvring/internal/hashfn"
	"kvring/internal/logging"
)

const (
	// DefaultVNodes is the base virtual node count per unit of weight.
	DefaultVNodes = 160
	// MaxVNodes caps the placements derived for a single node. Weights whose
	// vnodes*weight would exceed it are rejected with ErrInvalidWeight.
	MaxVNodes = 1 << 20

	vnodeSeparator = '#'
)

// Member is a physical node and its weight, as passed to SetNodes.
// A zero Weight means 1.
type Member struct {
	ID     string
	Weight int
}

// NodeInfo describes one physical node in a Snapshot.
type NodeInfo struct {
	ID           string
	Weight       int
	VirtualNodes int
}

// Snapshot is a read-only copy of ring membership.
type Snapshot struct {
	Nodes        []NodeInfo // sorted by ID
	VirtualNodes int
	BaseVNodes   int
	Collisions   int
}

// IDs returns the node IDs in the snapshot.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Option configures a Ring at construction.
type Option func(*Ring)

// WithHash replaces the default xxHash64 placement hash.
func WithHash(fn hashfn.Func) Option {
	return func(r *Ring) {
		if fn != nil {
			r.hash = fn
		}
	}
}

// WithLogger sets the logger used for membership and collision events.
func WithLogger(l logging.Logger) Option {
	return func(r *Ring) {
		if l != nil {
			r.log = l
		}
	}
}

// Ring implements consistent hashing with weighted virtual nodes.
//
// A node with weight w owns vnodesPerNode*w placements at
// H(id + "#" + i). Placements are never stored per node: they are derived
// again from (id, weight) whenever the node is removed or reweighted.
//
// Lookups take the read lock; membership changes take the write lock once
// for the whole operation, so readers never see part of a node's placements.
type Ring struct {
	mu            sync.RWMutex
	vnodesPerNode int
	hash          hashfn.Func
	log           logging.Logger
	index         *Index
	weights       map[string]int // nodeID -> weight
}

// NewRing creates a new consistent hashing ring.
func NewRing(vnodesPerNode int, opts ...Option) *Ring {
	if vnodesPerNode <= 0 {
		vnodesPerNode = DefaultVNodes
	}
	vnodesPerNode = min(vnodesPerNode, MaxVNodes)
	r := &Ring{
		vnodesPerNode: vnodesPerNode,
		hash:          hashfn.XXHash,
		log:           logging.Nop(),
		weights:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.index = r.newIndex()
	return r
}

// GetVNodes returns the base virtual node count per unit of weight.
func (r *Ring) GetVNodes() int {
	return r.vnodesPerNode
}

// AddNode adds a node with weight 1.
func (r *Ring) AddNode(id string) error {
	return r.AddWeightedNode(id, 1)
}

// AddWeightedNode adds a node owning vnodesPerNode*weight placements.
func (r *Ring) AddWeightedNode(id string, weight int) error {
	if id == "" {
		return &NodeError{Op: "add", ID: id, Err: ErrEmptyNodeID}
	}
	if !r.validWeight(weight) {
		return &WeightError{ID: id, Weight: weight}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.weights[id]; exists {
		return &NodeError{Op: "add", ID: id, Err: ErrDuplicateNode}
	}
	if err := r.addLocked(id, weight); err != nil {
		return err
	}
	r.log.Infof("added node %s (weight=%d, vnodes=%d, total=%d)", id, weight, r.vnodesPerNode*weight, r.index.Len())
	return nil
}

// RemoveNode removes a node and every placement derived for it.
func (r *Ring) RemoveNode(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	weight, exists := r.weights[id]
	if !exists {
		return &NodeError{Op: "remove", ID: id, Err: ErrUnknownNode}
	}
	if err := r.removeLocked(id, weight); err != nil {
		return err
	}
	r.log.Infof("removed node %s (total=%d)", id, r.index.Len())
	return nil
}

// SetWeight replaces a node's placements with those derived for newWeight.
func (r *Ring) SetWeight(id string, newWeight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, exists := r.weights[id]
	if !exists {
		return &NodeError{Op: "set weight", ID: id, Err: ErrUnknownNode}
	}
	if !r.validWeight(newWeight) {
		return &WeightError{ID: id, Weight: newWeight}
	}
	if newWeight == old {
		return nil
	}

	if err := r.removeLocked(id, old); err != nil {
		return err
	}
	if err := r.addLocked(id, newWeight); err != nil {
		// Put the old placements back so the node is not lost.
		if rerr := r.addLocked(id, old); rerr != nil {
			r.log.Errorf("restoring node %s after failed reweight: %v", id, rerr)
		}
		return err
	}
	r.log.Infof("reweighted node %s: %d -> %d (total=%d)", id, old, newWeight, r.index.Len())
	return nil
}

// SetNodes rebuilds the ring from a full membership list.
// The list is validated first; on error the ring is unchanged.
func (r *Ring) SetNodes(members []Member) error {
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.ID == "" {
			return &NodeError{Op: "add", ID: m.ID, Err: ErrEmptyNodeID}
		}
		if m.Weight != 0 && !r.validWeight(m.Weight) {
			return &WeightError{ID: m.ID, Weight: m.Weight}
		}
		if _, dup := seen[m.ID]; dup {
			return &NodeError{Op: "add", ID: m.ID, Err: ErrDuplicateNode}
		}
		seen[m.ID] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	index := r.newIndex()
	weights := make(map[string]int, len(members))
	for _, m := range members {
		weight := m.Weight
		if weight == 0 {
			weight = 1
		}
		if err := index.InsertBatch(r.placements(m.ID, weight)); err != nil {
			return fmt.Errorf("ring: place node %q: %w", m.ID, err)
		}
		weights[m.ID] = weight
	}

	r.index = index
	r.weights = weights
	r.log.Infof("ring rebuilt with %d nodes (total=%d)", len(weights), index.Len())
	return nil
}

// Locate returns up to replicas distinct node IDs for key, in clockwise
// order starting at the key's owner. Fewer IDs are returned only when fewer
// nodes are present.
func (r *Ring) Locate(key []byte, replicas int) ([]string, error) {
	if replicas < 1 {
		return nil, fmt.Errorf("ring: locate with %d replicas: %w", replicas, ErrInvalidReplicas)
	}
	h := r.hash(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.index.Len() == 0 {
		return nil, ErrEmptyRing
	}
	return r.index.SuccessorsDistinct(h, replicas), nil
}

// LocateString is Locate for string keys.
func (r *Ring) LocateString(key string, replicas int) ([]string, error) {
	return r.Locate([]byte(key), replicas)
}

// Owner returns the single node responsible for key.
func (r *Ring) Owner(key string) (string, error) {
	h := r.hash([]byte(key))

	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.index.Successor(h)
	if !ok {
		return "", ErrEmptyRing
	}
	return owner, nil
}

// Contains reports whether id is a member.
func (r *Ring) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.weights[id]
	return ok
}

// Weight returns the weight of id.
func (r *Ring) Weight(id string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.weights[id]
	return w, ok
}

// Len returns the number of physical nodes.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.weights)
}

// Snapshot returns a copy of the current membership.
func (r *Ring) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nodes := make([]NodeInfo, 0, len(r.weights))
	for id, w := range r.weights {
		nodes = append(nodes, NodeInfo{ID: id, Weight: w, VirtualNodes: r.vnodesPerNode * w})
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})

	return Snapshot{
		Nodes:        nodes,
		VirtualNodes: r.index.Len(),
		BaseVNodes:   r.vnodesPerNode,
		Collisions:   r.index.Collisions(),
	}
}

// Placements returns every placement on the ring in clockwise order.
func (r *Ring) Placements() []Placement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Placements()
}

// validWeight reports whether weight is positive and keeps the node's
// placement count within MaxVNodes.
func (r *Ring) validWeight(weight int) bool {
	return weight > 0 && weight <= MaxVNodes/r.vnodesPerNode
}

func (r *Ring) addLocked(id string, weight int) error {
	if err := r.index.InsertBatch(r.placements(id, weight)); err != nil {
		return fmt.Errorf("ring: place node %q: %w", id, err)
	}
	r.weights[id] = weight
	return nil
}

func (r *Ring) removeLocked(id string, weight int) error {
	if err := r.index.RemoveBatch(r.placements(id, weight)); err != nil {
		// The derivation no longer matches what was inserted.
		return fmt.Errorf("ring: unplace node %q: %w", id, err)
	}
	delete(r.weights, id)
	return nil
}

// placements derives the placements of a node from its ID and weight.
func (r *Ring) placements(id string, weight int) []Placement {
	n := r.vnodesPerNode * weight
	out := make([]Placement, n)

	buf := make([]byte, 0, len(id)+12)
	buf = append(buf, id...)
	buf = append(buf, vnodeSeparator)
	prefix := len(buf)

	for i := 0; i < n; i++ {
		buf = strconv.AppendInt(buf[:prefix], int64(i), 10)
		out[i] = Placement{Position: r.hash(buf), Owner: id, Replica: i}
	}
	return out
}

func (r *Ring) newIndex() *Index {
	index := NewIndex()
	index.SetCollisionHook(r.onCollision)
	return index
}

func (r *Ring) onCollision(existing, incoming Placement) {
	r.log.Warnf("vnode collision at %016x between %s#%d and %s#%d; ordered by placement key",
		existing.Position, existing.Owner, existing.Replica, incoming.Owner, incoming.Replica)
}
