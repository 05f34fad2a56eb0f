// Package virtual provides an in-memory CAN bus used by tests, the
// simulator, and offline runs of armctl.
package virtual
