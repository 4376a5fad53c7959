package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"kvring/internal/hashfn"
	"kvring/internal/ring"
)

// NodeSpec is a physical node listed in the configuration.
type NodeSpec struct {
	ID     string `toml:"id"`
	Weight int    `toml:"weight"`
}

// Config holds the ringd configuration.
type Config struct {
	NodeID            string     `toml:"node_id"`
	ListenAddr        string     `toml:"listen"`
	VNodes            int        `toml:"vnodes"`
	Hash              string     `toml:"hash"`
	LogLevel          string     `toml:"log_level"`
	ReplicationFactor int        `toml:"replication_factor"`
	Nodes             []NodeSpec `toml:"nodes"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		NodeID:            "ringd",
		ListenAddr:        ":50051",
		VNodes:            ring.DefaultVNodes,
		Hash:              hashfn.Default,
		LogLevel:          "info",
		ReplicationFactor: 2,
	}
}

// Load reads a TOML file on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate checks the configuration for values the ring would reject.
func (c *Config) Validate() error {
	var errs []error
	if c.NodeID == "" {
		errs = append(errs, errors.New("node_id cannot be empty"))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address cannot be empty"))
	}
	if c.VNodes <= 0 || c.VNodes > ring.MaxVNodes {
		errs = append(errs, fmt.Errorf("vnodes must be between 1 and %d, got %d", ring.MaxVNodes, c.VNodes))
	}
	if c.ReplicationFactor <= 0 {
		errs = append(errs, fmt.Errorf("replication_factor must be positive, got %d", c.ReplicationFactor))
	}
	if _, err := hashfn.ByName(c.Hash); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Nodes))
	for _, n := range c.Nodes {
		switch {
		case n.ID == "":
			errs = append(errs, errors.New("node ID cannot be empty"))
		case seen[n.ID]:
			errs = append(errs, fmt.Errorf("node %q listed twice", n.ID))
		case n.Weight < 0:
			errs = append(errs, fmt.Errorf("node %q: weight must be positive, got %d", n.ID, n.Weight))
		case c.VNodes > 0 && n.Weight > ring.MaxVNodes/c.VNodes:
			errs = append(errs, fmt.Errorf("node %q: weight %d exceeds %d vnodes", n.ID, n.Weight, ring.MaxVNodes))
		}
		seen[n.ID] = true
	}
	return errors.Join(errs...)
}

// HashFunc resolves the configured hash function.
func (c *Config) HashFunc() (hashfn.Func, error) {
	return hashfn.ByName(c.Hash)
}

// ParseNodes parses a comma-separated list of nodes in the format:
// "id1=weight1,id2,id3=weight3". A missing weight means 1.
func ParseNodes(nodesStr string) ([]NodeSpec, error) {
	if strings.TrimSpace(nodesStr) == "" {
		return []NodeSpec{}, nil
	}

	parts := strings.Split(nodesStr, ",")
	nodes := make([]NodeSpec, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, weightStr, hasWeight := strings.Cut(part, "=")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("node ID cannot be empty: %s", part)
		}

		weight := 1
		if hasWeight {
			w, err := strconv.Atoi(strings.TrimSpace(weightStr))
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("invalid node weight: %s (expected id=positive integer)", part)
			}
			weight = w
		}

		nodes = append(nodes, NodeSpec{ID: id, Weight: weight})
	}

	return nodes, nil
}

// Members converts the configured nodes into ring members.
func (c *Config) Members() []ring.Member {
	members := make([]ring.Member, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		members = append(members, ring.Member{ID: n.ID, Weight: n.Weight})
	}
	return members
}
