package quorum

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultPerReplicaTimeout is the default timeout for each replica call.
	DefaultPerReplicaTimeout = 2 * time.Second
)

// WriteResult represents the result of a quorum write operation.
type WriteResult struct {
	Success      bool
	Acks         int
	Required     int
	Replicas     int
	Acked        []string // replicas that acknowledged, in preference order
	ErrorMessage string
}

// ReadResult represents the result of a failover read.
type ReadResult struct {
	Success      bool   // at least one replica answered
	Found        bool   // a replica held the key
	Value        []byte
	Replica      string // replica that served Value
	Tried        int
	ErrorMessage string
}

// ReplicaWriteFunc performs a write to a single replica.
type ReplicaWriteFunc func(ctx context.Context, replicaID string) error

// ReplicaReadFunc performs a read from a single replica.
// found is false when the replica answered but does not hold the key.
type ReplicaReadFunc func(ctx context.Context, replicaID string) (value []byte, found bool, err error)

type writeAck struct {
	replica string
	err     error
}

// DoWrite performs a quorum write operation.
// It fans out to all replicas in parallel and returns as soon as requiredW
// acks are received. requiredW <= 0 means a majority.
func DoWrite(ctx context.Context, replicas []string, requiredW int, writeFn ReplicaWriteFunc) WriteResult {
	if len(replicas) == 0 {
		return WriteResult{
			Success:      false,
			ErrorMessage: "no replicas provided",
		}
	}

	if requiredW <= 0 {
		requiredW = (len(replicas) / 2) + 1 // default: majority
	}

	if requiredW > len(replicas) {
		return WriteResult{
			Success:      false,
			Required:     requiredW,
			Replicas:     len(replicas),
			ErrorMessage: fmt.Sprintf("required W=%d exceeds replica count=%d", requiredW, len(replicas)),
		}
	}

	// Stragglers are cancelled once the outcome is known.
	replicaCtx, cancel := context.WithTimeout(ctx, DefaultPerReplicaTimeout)
	defer cancel()

	results := make(chan writeAck, len(replicas))
	for _, replicaID := range replicas {
		go func(rid string) {
			results <- writeAck{replica: rid, err: writeFn(replicaCtx, rid)}
		}(replicaID)
	}

	acked := make(map[string]bool, len(replicas))
	var errs []error

	for received := 0; received < len(replicas) && len(acked) < requiredW; received++ {
		select {
		case res := <-results:
			if res.err != nil {
				errs = append(errs, fmt.Errorf("replica %s: %w", res.replica, res.err))
				continue
			}
			acked[res.replica] = true
		case <-ctx.Done():
			return WriteResult{
				Success:      false,
				Acks:         len(acked),
				Required:     requiredW,
				Replicas:     len(replicas),
				Acked:        inOrder(replicas, acked),
				ErrorMessage: fmt.Sprintf("context cancelled: %v", ctx.Err()),
			}
		}
	}

	result := WriteResult{
		Acks:     len(acked),
		Required: requiredW,
		Replicas: len(replicas),
		Acked:    inOrder(replicas, acked),
	}
	if len(acked) >= requiredW {
		result.Success = true
		return result
	}

	// Quorum not met
	result.ErrorMessage = fmt.Sprintf("quorum not met: acks=%d required=%d replicas=%d", len(acked), requiredW, len(replicas))
	if len(errs) > 0 {
		result.ErrorMessage += fmt.Sprintf(" errors=%v", errs[:min(3, len(errs))])
	}
	return result
}

// ReadFirst tries replicas in preference order and returns the first value
// found. A replica that errors or misses is skipped in favour of the next.
func ReadFirst(ctx context.Context, replicas []string, readFn ReplicaReadFunc) ReadResult {
	if len(replicas) == 0 {
		return ReadResult{
			Success:      false,
			ErrorMessage: "no replicas provided",
		}
	}

	var (
		answered bool
		errs     []error
		tried    int
	)
	for _, rid := range replicas {
		if err := ctx.Err(); err != nil {
			return ReadResult{
				Success:      answered,
				Tried:        tried,
				ErrorMessage: fmt.Sprintf("context cancelled: %v", err),
			}
		}

		tried++
		replicaCtx, cancel := context.WithTimeout(ctx, DefaultPerReplicaTimeout)
		value, found, err := readFn(replicaCtx, rid)
		cancel()

		if err != nil {
			errs = append(errs, fmt.Errorf("replica %s: %w", rid, err))
			continue
		}
		answered = true
		if found {
			return ReadResult{
				Success: true,
				Found:   true,
				Value:   value,
				Replica: rid,
				Tried:   tried,
			}
		}
	}

	result := ReadResult{Success: answered, Tried: tried}
	if !answered {
		result.ErrorMessage = fmt.Sprintf("no replica answered: errors=%v", errs[:min(3, len(errs))])
	}
	return result
}

func inOrder(replicas []string, set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, r := range replicas {
		if set[r] {
			out = append(out, r)
		}
	}
	return out
}
