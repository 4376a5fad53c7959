// Package quorum provides coordination logic for writing to and reading from
// a key's replica list. It handles fanout to replicas, per-replica timeouts,
// write acknowledgement counting and ordered read failover.
package quorum
