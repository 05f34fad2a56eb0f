// Package command arbitrates outbound frames between the realtime mailbox
// and the ordered reliable queue.
//
// Ownership boundary:
// - overwrite semantics for realtime control
// - bounded FIFO with backpressure for reliable commands
// - strict realtime-first selection for the TX loop
package command
