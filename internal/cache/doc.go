// Package cache provides a byte-bounded LRU cache for immutable blob blocks.
//
// Entries are charged against an optional resource.Controller memory budget,
// so cached blocks and decode buffers share one limit.
package cache
