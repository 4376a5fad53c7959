package quorum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestQuorum_WriteSuccessIffAcksGEQ_W tests that write succeeds iff acks >= W
func TestQuorum_WriteSuccessIffAcksGEQ_W(t *testing.T) {
	tests := []struct {
		name          string
		total         int
		w             int
		successAcks   int
		shouldSucceed bool
	}{
		{"W=2, 2 acks, should succeed", 3, 2, 2, true},
		{"W=2, 1 ack, should fail", 3, 2, 1, false},
		{"W=2, 3 acks, should succeed", 3, 2, 3, true},
		{"W=3, 2 acks, should fail", 3, 3, 2, false},
		{"W=3, 3 acks, should succeed", 3, 3, 3, true},
		{"W=1, 1 ack, should succeed", 3, 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replicas := make([]string, tt.total)
			for i := 0; i < tt.total; i++ {
				replicas[i] = fmt.Sprintf("replica%d", i)
			}

			writeFn := func(ctx context.Context, replicaID string) error {
				// Simulate success for first successAcks replicas
				for i, r := range replicas {
					if r == replicaID && i < tt.successAcks {
						return nil
					}
				}
				return errors.New("simulated failure")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			result := DoWrite(ctx, replicas, tt.w, writeFn)

			if result.Success != tt.shouldSucceed {
				t.Errorf("Expected success=%v, got %v (acks=%d, W=%d)",
					tt.shouldSucceed, result.Success, tt.successAcks, tt.w)
			}
		})
	}
}

// TestQuorum_ReadReturnsFirstHolder tests that the first replica in
// preference order holding the key serves it
func TestQuorum_ReadReturnsFirstHolder(t *testing.T) {
	replicas := []string{"r0", "r1", "r2", "r3"}

	for holder := range replicas {
		for down := 0; down < holder; down++ {
			t.Run(fmt.Sprintf("holder=%d down=%d", holder, down), func(t *testing.T) {
				readFn := func(ctx context.Context, replicaID string) ([]byte, bool, error) {
					for i, r := range replicas {
						if r != replicaID {
							continue
						}
						switch {
						case i < down:
							return nil, false, errors.New("down")
						case i >= holder:
							return []byte(r), true, nil
						}
					}
					return nil, false, nil
				}

				result := ReadFirst(context.Background(), replicas, readFn)
				if !result.Found || result.Replica != replicas[holder] {
					t.Errorf("Expected %s to serve, got %+v", replicas[holder], result)
				}
				if result.Tried != holder+1 {
					t.Errorf("Expected %d replicas tried, got %d", holder+1, result.Tried)
				}
			})
		}
	}
}

// TestQuorum_ConcurrentWrites tests that concurrent coordinated writes do not interfere
func TestQuorum_ConcurrentWrites(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	var (
		mu     sync.Mutex
		writes = make(map[string]int)
	)
	writeFn := func(ctx context.Context, replicaID string) error {
		mu.Lock()
		defer mu.Unlock()
		writes[replicaID]++
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if result := DoWrite(context.Background(), replicas, len(replicas), writeFn); !result.Success {
				t.Errorf("write failed: %s", result.ErrorMessage)
			}
		}()
	}
	wg.Wait()

	for _, r := range replicas {
		if writes[r] != 20 {
			t.Errorf("Expected 20 writes on %s, got %d", r, writes[r])
		}
	}
}
