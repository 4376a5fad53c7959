package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvring/internal/ring"
)

func TestParseNodes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []NodeSpec
		wantErr bool
	}{
		{
			name:  "empty string",
			input: "",
			want:  []NodeSpec{},
		},
		{
			name:  "single node default weight",
			input: "A",
			want:  []NodeSpec{{ID: "A", Weight: 1}},
		},
		{
			name:  "multiple nodes",
			input: "A=3,B,C=2",
			want: []NodeSpec{
				{ID: "A", Weight: 3},
				{ID: "B", Weight: 1},
				{ID: "C", Weight: 2},
			},
		},
		{
			name:  "with spaces and trailing comma",
			input: " A = 3 , B ,",
			want: []NodeSpec{
				{ID: "A", Weight: 3},
				{ID: "B", Weight: 1},
			},
		},
		{
			name:    "invalid format - empty ID",
			input:   "=3",
			wantErr: true,
		},
		{
			name:    "invalid format - zero weight",
			input:   "A=0",
			wantErr: true,
		},
		{
			name:    "invalid format - non numeric weight",
			input:   "A=heavy",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNodes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseNodes() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ringd.toml")
	content := `
node_id = "ringd-1"
listen = "127.0.0.1:6000"
vnodes = 200
hash = "fnv1a"
replication_factor = 3

[[nodes]]
id = "A"
weight = 3

[[nodes]]
id = "B"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ringd-1", cfg.NodeID)
	assert.Equal(t, "127.0.0.1:6000", cfg.ListenAddr)
	assert.Equal(t, 200, cfg.VNodes)
	assert.Equal(t, "fnv1a", cfg.Hash)
	assert.Equal(t, "info", cfg.LogLevel, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.ReplicationFactor)
	assert.Equal(t, []ring.Member{{ID: "A", Weight: 3}, {ID: "B", Weight: 0}}, cfg.Members())

	_, err = cfg.HashFunc()
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("vnodez = 10\n"), 0o644))
	_, err = Load(unknown)
	assert.ErrorContains(t, err, "vnodez")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "empty node id", mutate: func(c *Config) { c.NodeID = "" }, wantErr: "node_id"},
		{name: "zero vnodes", mutate: func(c *Config) { c.VNodes = 0 }, wantErr: "vnodes"},
		{name: "vnodes over ceiling", mutate: func(c *Config) { c.VNodes = ring.MaxVNodes + 1 }, wantErr: "vnodes"},
		{
			name:    "weight over ceiling",
			mutate:  func(c *Config) { c.Nodes = []NodeSpec{{ID: "A", Weight: 1 << 62}} },
			wantErr: "exceeds",
		},
		{name: "zero replication", mutate: func(c *Config) { c.ReplicationFactor = 0 }, wantErr: "replication_factor"},
		{name: "unknown hash", mutate: func(c *Config) { c.Hash = "md5" }, wantErr: "md5"},
		{
			name:    "duplicate node",
			mutate:  func(c *Config) { c.Nodes = []NodeSpec{{ID: "A"}, {ID: "A"}} },
			wantErr: "listed twice",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Nodes = []NodeSpec{{ID: "A", Weight: -1}} },
			wantErr: "weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
