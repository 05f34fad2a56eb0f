// Package can owns the CAN frame value and its fixed-size record codec.
//
// Ownership boundary:
// - frame validation
// - record encode/decode for recordings
package can
