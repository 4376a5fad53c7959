package it

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvring/internal/ring"
)

const binaryPath = "./ringd"

func startCluster(t *testing.T) *Cluster {
	t.Helper()
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skip("Binary not found, skipping integration test. Build with: go build -o internal/it/ringd ./cmd/ringd")
	}

	cluster, err := NewCluster(binaryPath)
	require.NoError(t, err)
	t.Cleanup(cluster.Stop)
	return cluster
}

func TestSmoke_MembershipAndLocate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cluster := startCluster(t)
	n1, err := cluster.StartNode(ctx, "r1", 60151, "A=3,B,C")
	require.NoError(t, err)
	client := n1.Client()

	snap, err := client.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, snap.IDs())
	assert.Equal(t, 128*5, snap.VirtualNodes)

	owners, err := client.Locate(ctx, "user-42", 2)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.NotEqual(t, owners[0], owners[1])

	require.NoError(t, client.AddWeightedNode(ctx, "D", 2))
	require.NoError(t, client.SetWeight(ctx, "A", 1))
	require.NoError(t, client.RemoveNode(ctx, "B"))
	assert.ErrorIs(t, client.RemoveNode(ctx, "B"), ring.ErrUnknownNode)

	snap, err = client.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ring.NodeInfo{
		{ID: "A", Weight: 1, VirtualNodes: 128},
		{ID: "C", Weight: 1, VirtualNodes: 128},
		{ID: "D", Weight: 2, VirtualNodes: 256},
	}, snap.Nodes)
}

func TestSmoke_ProcessesAgreeOnPlacement(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cluster := startCluster(t)
	// Same membership listed in a different order.
	n1, err := cluster.StartNode(ctx, "r1", 60161, "A=2,B,C")
	require.NoError(t, err)
	n2, err := cluster.StartNode(ctx, "r2", 60162, "C,B,A=2")
	require.NoError(t, err)

	locateAll := func(n *Node) map[string][]string {
		out := make(map[string][]string)
		for i := 0; i < 200; i++ {
			key := fmt.Sprintf("key-%d", i)
			owners, err := n.Client().Locate(ctx, key, 3)
			require.NoError(t, err)
			out[key] = owners
		}
		return out
	}

	before := locateAll(n1)
	assert.Equal(t, before, locateAll(n2))

	require.NoError(t, cluster.RestartNode(ctx, "r1"))
	assert.Equal(t, before, locateAll(cluster.GetNode("r1")), "placement survives a restart")
}
