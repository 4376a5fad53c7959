// Package ring implements a consistent hashing ring with weighted virtual nodes.
// It maps keys to physical nodes while minimizing key movement when
// membership changes and supports selection of replica preference lists.
//
// Index is the ordered placement structure; Ring layers node membership,
// deterministic virtual-node derivation and locking on top of it.
package ring
