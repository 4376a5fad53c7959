// Package it drives ringd binaries for end-to-end tests.
package it

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"kvring/internal/node"
)

// Cluster represents a set of ringd processes under test
type Cluster struct {
	nodes      []*Node
	logDir     string
	binaryPath string
	mu         sync.Mutex
}

// Node represents a single ringd process
type Node struct {
	ID      string
	Addr    string
	Port    int
	Members string // --nodes value the process was started with
	cmd     *exec.Cmd
	logFile *os.File
	client  *node.Client
}

// NewCluster creates a new test cluster harness
func NewCluster(binaryPath string) (*Cluster, error) {
	logDir := filepath.Join(".local", "it-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &Cluster{
		nodes:      make([]*Node, 0),
		logDir:     logDir,
		binaryPath: binaryPath,
	}, nil
}

// StartNode starts a ringd process seeded with members ("a=3,b,c").
func (c *Cluster) StartNode(ctx context.Context, nodeID string, port int, members string) (*Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := &Node{
		ID:      nodeID,
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Port:    port,
		Members: members,
	}
	if err := c.launch(ctx, n); err != nil {
		return nil, err
	}
	c.nodes = append(c.nodes, n)
	return n, nil
}

func (c *Cluster) launch(ctx context.Context, n *Node) error {
	logPath := filepath.Join(c.logDir, fmt.Sprintf("%s.log", n.ID))
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.binaryPath,
		"--node-id", n.ID,
		"--listen", n.Addr,
		"--nodes", n.Members,
		"--vnodes", "128",
		"--log-level", "debug",
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("failed to start node %s: %w", n.ID, err)
	}

	client, err := node.Dial(n.Addr)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		logFile.Close()
		return fmt.Errorf("failed to dial node %s: %w", n.ID, err)
	}

	n.cmd = cmd
	n.logFile = logFile
	n.client = client

	if err := waitForReady(ctx, n, 10*time.Second); err != nil {
		n.Stop()
		return fmt.Errorf("node %s failed to become ready: %w", n.ID, err)
	}
	return nil
}

// waitForReady waits for a node to be ready by checking health endpoint
func waitForReady(ctx context.Context, n *Node, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout waiting for node %s to be ready", n.ID)
			}

			healthCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			ok, err := n.client.Healthy(healthCtx)
			cancel()
			if err == nil && ok {
				return nil
			}
		}
	}
}

// Stop stops all nodes in the cluster
func (c *Cluster) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.nodes {
		n.Stop()
	}
	c.nodes = nil
}

// Stop stops a single node
func (n *Node) Stop() {
	if n.client != nil {
		n.client.Close()
	}
	if n.cmd != nil && n.cmd.Process != nil {
		n.cmd.Process.Kill()
		n.cmd.Wait()
		n.cmd = nil
	}
	if n.logFile != nil {
		n.logFile.Close()
		n.logFile = nil
	}
}

// Client returns the placement client for a node
func (n *Node) Client() *node.Client {
	return n.client
}

// GetNode returns a node by ID
func (c *Cluster) GetNode(nodeID string) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.nodes {
		if n.ID == nodeID {
			return n
		}
	}
	return nil
}

// RestartNode kills a node and starts it again with the same arguments
func (c *Cluster) RestartNode(ctx context.Context, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.nodes {
		if n.ID != nodeID {
			continue
		}
		n.Stop()
		if err := c.launch(ctx, n); err != nil {
			return fmt.Errorf("node %s failed to restart: %w", nodeID, err)
		}
		return nil
	}
	return fmt.Errorf("node %s not found", nodeID)
}
