// Package hashfn provides the pluggable 64-bit hash functions used to place
// virtual nodes and keys on the ring. All functions are pure and safe for
// concurrent use without synchronization.
package hashfn
