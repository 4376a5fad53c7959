package quorum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoWrite_Success(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	requiredW := 2

	writeFn := func(ctx context.Context, replicaID string) error {
		return nil
	}

	result := DoWrite(context.Background(), replicas, requiredW, writeFn)

	if !result.Success {
		t.Errorf("Expected success, got: %v", result.ErrorMessage)
	}
	if result.Acks < requiredW {
		t.Errorf("Expected at least %d acks, got %d", requiredW, result.Acks)
	}
}

func TestDoWrite_QuorumNotMet(t *testing.T) {
	replicas := []string{"r1", "r2", "r3"}
	requiredW := 3

	writeFn := func(ctx context.Context, replicaID string) error {
		// Only r1 and r2 succeed
		if replicaID == "r3" {
			return errors.New("replica failed")
		}
		return nil
	}

	result := DoWrite(context.Background(), replicas, requiredW, writeFn)

	if result.Success {
		t.Error("Expected failure, got success")
	}
	assert.Equal(t, 2, result.Acks)
	assert.Equal(t, []string{"r1", "r2"}, result.Acked)
	assert.Contains(t, result.ErrorMessage, "replica r3")
}

func TestDoWrite_EarlySuccess(t *testing.T) {
	replicas := []string{"r1", "r2", "r3", "r4", "r5"}
	requiredW := 2

	writeFn := func(ctx context.Context, replicaID string) error {
		if replicaID == "r1" || replicaID == "r2" {
			return nil
		}
		// Slow replicas are abandoned once W acks arrive.
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	start := time.Now()
	result := DoWrite(context.Background(), replicas, requiredW, writeFn)
	duration := time.Since(start)

	if !result.Success {
		t.Errorf("Expected success, got: %v", result.ErrorMessage)
	}
	assert.Equal(t, []string{"r1", "r2"}, result.Acked)

	if duration > 500*time.Millisecond {
		t.Errorf("Expected early termination, took %v", duration)
	}
}

func TestDoWrite_DefaultMajority(t *testing.T) {
	result := DoWrite(context.Background(), []string{"r1", "r2", "r3"}, 0, func(ctx context.Context, replicaID string) error {
		return nil
	})
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Required)
}

func TestDoWrite_RequiredExceedsReplicas(t *testing.T) {
	result := DoWrite(context.Background(), []string{"r1"}, 2, func(ctx context.Context, replicaID string) error {
		t.Error("no replica should be contacted")
		return nil
	})
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "exceeds")
}

func TestDoWrite_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	writeFn := func(ctx context.Context, replicaID string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	result := DoWrite(ctx, []string{"r1", "r2"}, 2, writeFn)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestDoWrite_NoReplicas(t *testing.T) {
	result := DoWrite(context.Background(), nil, 1, func(ctx context.Context, replicaID string) error {
		return nil
	})

	if result.Success {
		t.Error("Expected failure with no replicas")
	}
	if result.ErrorMessage == "" {
		t.Error("Expected error message")
	}
}

func TestReadFirst_PrimaryServes(t *testing.T) {
	var contacted []string
	readFn := func(ctx context.Context, replicaID string) ([]byte, bool, error) {
		contacted = append(contacted, replicaID)
		return []byte("v-" + replicaID), true, nil
	}

	result := ReadFirst(context.Background(), []string{"r1", "r2"}, readFn)

	assert.True(t, result.Success)
	assert.True(t, result.Found)
	assert.Equal(t, "r1", result.Replica)
	assert.Equal(t, []byte("v-r1"), result.Value)
	assert.Equal(t, []string{"r1"}, contacted, "secondary is not contacted when primary answers")
}

func TestReadFirst_FailsOver(t *testing.T) {
	readFn := func(ctx context.Context, replicaID string) ([]byte, bool, error) {
		switch replicaID {
		case "r1":
			return nil, false, errors.New("node down")
		case "r2":
			return nil, false, nil
		}
		return []byte("value"), true, nil
	}

	result := ReadFirst(context.Background(), []string{"r1", "r2", "r3"}, readFn)

	assert.True(t, result.Success)
	assert.True(t, result.Found)
	assert.Equal(t, "r3", result.Replica)
	assert.Equal(t, 3, result.Tried)
}

func TestReadFirst_NotFound(t *testing.T) {
	readFn := func(ctx context.Context, replicaID string) ([]byte, bool, error) {
		if replicaID == "r1" {
			return nil, false, errors.New("node down")
		}
		return nil, false, nil
	}

	result := ReadFirst(context.Background(), []string{"r1", "r2"}, readFn)

	assert.True(t, result.Success, "r2 answered")
	assert.False(t, result.Found)
	assert.Empty(t, result.ErrorMessage)
}

func TestReadFirst_AllFail(t *testing.T) {
	readFn := func(ctx context.Context, replicaID string) ([]byte, bool, error) {
		return nil, false, errors.New("node down")
	}

	result := ReadFirst(context.Background(), []string{"r1", "r2"}, readFn)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Tried)
	assert.Contains(t, result.ErrorMessage, "node down")
}

func TestReadFirst_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := ReadFirst(ctx, []string{"r1"}, func(ctx context.Context, replicaID string) ([]byte, bool, error) {
		t.Error("cancelled read should not contact replicas")
		return nil, false, nil
	})
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Tried)
}
