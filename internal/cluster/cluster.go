// Package cluster simulates a set of storage servers placed on a hash ring.
// Writes go to every replica in a key's preference list; reads fail over along
// the same list until a replica holds the key.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"kvring/internal/logging"
	"kvring/internal/quorum"
	"kvring/internal/ring"
	"kvring/internal/storage"
)

// DefaultReplicationFactor is used when New is given a non-positive factor.
const DefaultReplicationFactor = 2

var (
	// ErrWriteFailed is returned when a write could not reach every replica.
	ErrWriteFailed = errors.New("cluster: write failed")
	// ErrNotFound is returned when no reachable replica holds the key.
	ErrNotFound = errors.New("cluster: key not found")

	errServerOffline = errors.New("server offline")
)

// Option configures a Cluster.
type Option func(*Cluster)

// WithLogger sets the logger used for routing and failure messages.
func WithLogger(l logging.Logger) Option {
	return func(c *Cluster) {
		if l != nil {
			c.log = l
		}
	}
}

// ReadResult describes a successful read.
type ReadResult struct {
	Value   []byte
	Replica string // server that answered
	Tried   int
}

// Cluster is a ring plus one in-memory store per deployed server.
type Cluster struct {
	mu                sync.RWMutex
	ring              *ring.Ring
	servers           map[string]*storage.InMemoryStore
	replicationFactor int
	log               logging.Logger
}

// New creates a cluster over r. Servers already on r have no store until
// they are deployed through the cluster.
func New(r *ring.Ring, replicationFactor int, opts ...Option) *Cluster {
	if replicationFactor <= 0 {
		replicationFactor = DefaultReplicationFactor
	}
	c := &Cluster{
		ring:              r,
		servers:           make(map[string]*storage.InMemoryStore),
		replicationFactor: replicationFactor,
		log:               logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReplicationFactor returns the number of replicas each key is written to.
func (c *Cluster) ReplicationFactor() int {
	return c.replicationFactor
}

// Deploy places a server with the given weight on the ring and gives it an
// empty store.
func (c *Cluster) Deploy(id string, weight int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ring.AddWeightedNode(id, weight); err != nil {
		return err
	}
	c.servers[id] = storage.NewInMemoryStore(id)
	c.log.Infof("Deployed %s (weight %d)", id, weight)
	return nil
}

// Fail takes a server offline. Its placements leave the ring and its data
// becomes unreachable.
func (c *Cluster) Fail(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ring.RemoveNode(id); err != nil {
		return err
	}
	delete(c.servers, id)
	c.log.Warnf("Server %s is offline", id)
	return nil
}

// Replicas returns the preference list for key.
func (c *Cluster) Replicas(key string) ([]string, error) {
	return c.ring.LocateString(key, c.replicationFactor)
}

// Put writes value to every replica of key and returns the replicas written.
func (c *Cluster) Put(ctx context.Context, key string, value []byte) ([]string, error) {
	targets, stores, err := c.route(key)
	if err != nil {
		return nil, err
	}
	c.log.Debugf("Routing %q to replicas %v", key, targets)

	result := quorum.DoWrite(ctx, targets, len(targets), func(ctx context.Context, replicaID string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, ok := stores[replicaID]
		if !ok {
			return errServerOffline
		}
		s.Put(key, value)
		return nil
	})
	if !result.Success {
		return result.Acked, fmt.Errorf("%w: key %q: %s", ErrWriteFailed, key, result.ErrorMessage)
	}
	return result.Acked, nil
}

// Get reads key from the first replica in preference order that holds it.
func (c *Cluster) Get(ctx context.Context, key string) (ReadResult, error) {
	targets, stores, err := c.route(key)
	if err != nil {
		return ReadResult{}, err
	}

	result := quorum.ReadFirst(ctx, targets, func(ctx context.Context, replicaID string) ([]byte, bool, error) {
		s, ok := stores[replicaID]
		if !ok {
			return nil, false, errServerOffline
		}
		v, found := s.Get(key)
		return v, found, nil
	})
	if !result.Found {
		c.log.Warnf("Key %q lost on all %d replicas", key, len(targets))
		if result.ErrorMessage != "" {
			return ReadResult{Tried: result.Tried}, fmt.Errorf("%w: key %q: %s", ErrNotFound, key, result.ErrorMessage)
		}
		return ReadResult{Tried: result.Tried}, fmt.Errorf("%w: key %q", ErrNotFound, key)
	}
	return ReadResult{Value: result.Value, Replica: result.Replica, Tried: result.Tried}, nil
}

// Servers returns the IDs of deployed servers in sorted order.
func (c *Cluster) Servers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.servers))
	for id := range c.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// KeyCounts returns how many keys each deployed server stores.
func (c *Cluster) KeyCounts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int, len(c.servers))
	for id, s := range c.servers {
		counts[id] = s.Len()
	}
	return counts
}

// route resolves the preference list and the stores behind it under one
// read lock so a concurrent Fail cannot split the two.
func (c *Cluster) route(key string) ([]string, map[string]storage.Store, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	targets, err := c.ring.LocateString(key, c.replicationFactor)
	if err != nil {
		return nil, nil, err
	}
	stores := make(map[string]storage.Store, len(targets))
	for _, id := range targets {
		if s, ok := c.servers[id]; ok {
			stores[id] = s
		}
	}
	return targets, stores, nil
}
