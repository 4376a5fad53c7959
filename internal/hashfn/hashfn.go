package hashfn

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Func maps bytes to a position on the 64-bit ring.
type Func func(data []byte) uint64

const (
	// NameXXHash is the default hash: xxHash64 with seed 0.
	NameXXHash = "xxhash"
	// NameFNV1a is 64-bit FNV-1a.
	NameFNV1a = "fnv1a"

	// Default is used when no hash is configured.
	Default = NameXXHash
)

var registry = map[string]Func{
	NameXXHash: XXHash,
	NameFNV1a:  FNV1a,
}

// XXHash computes xxHash64 of data.
func XXHash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// FNV1a computes 64-bit FNV-1a of data.
func FNV1a(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// ByName returns the hash function registered under name.
// An empty name selects Default.
func ByName(name string) (Func, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = Default
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown hash function %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fn, nil
}

// Names lists the registered hash function names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
