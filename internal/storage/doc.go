// Package storage provides the local key-value store held by each simulated
// physical node. Values are copied on the way in and out so callers cannot
// mutate stored data.
package storage
