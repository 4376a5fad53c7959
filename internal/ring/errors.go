package ring

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateNode is returned when adding a node ID that is already present.
	ErrDuplicateNode = errors.New("node already present")
	// ErrUnknownNode is returned when removing or reweighting an absent node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidWeight is returned for non-positive weights.
	ErrInvalidWeight = errors.New("weight must be a positive integer")
	// ErrEmptyNodeID is returned when a node ID is the empty string.
	ErrEmptyNodeID = errors.New("node ID cannot be empty")
	// ErrEmptyRing is returned by lookups on a ring with no nodes.
	ErrEmptyRing = errors.New("ring has no nodes")
	// ErrInvalidReplicas is returned when fewer than one replica is requested.
	ErrInvalidReplicas = errors.New("replica count must be at least 1")

	// ErrPlacementExists is returned by Index when the exact placement is already stored.
	ErrPlacementExists = errors.New("placement already present")
	// ErrPlacementNotFound is returned by Index when removing a placement it does not hold.
	ErrPlacementNotFound = errors.New("placement not found")
)

// NodeError reports a membership operation that failed for a specific node.
type NodeError struct {
	Op  string
	ID  string
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("ring: %s node %q: %v", e.Op, e.ID, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// WeightError reports a rejected weight. It matches ErrInvalidWeight.
type WeightError struct {
	ID     string
	Weight int
}

func (e *WeightError) Error() string {
	return fmt.Sprintf("ring: invalid weight %d for node %q", e.Weight, e.ID)
}

func (e *WeightError) Unwrap() error { return ErrInvalidWeight }
