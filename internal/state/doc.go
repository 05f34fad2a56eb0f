// Package state owns the tiered telemetry store.
//
// Tiers:
// - hot/warm: Slot, an atomically swapped pointer to an immutable value
// - cold: Cold, a value behind a RWMutex
//
// Multi-frame values go through Group, which publishes only complete cycles,
// and ChunkBuffer for variable-length text. Router ties frame ids to both.
package state
