// Package pipeline runs the two I/O goroutines of one CAN connection.
//
// The RX loop feeds received frames to a Sink; the TX loop drains the
// command channel, realtime first. Both observe one running flag. The first
// fatal error from either side clears it, and Stop joins both loops before
// writing the safe frame.
package pipeline
