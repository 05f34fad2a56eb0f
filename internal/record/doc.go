// Package record writes and replays wire recordings.
//
// A recording is a 24-byte header followed by fixed-size frame records in
// receive order:
//
//	0..5   "ARMREC"
//	6..7   format version (big-endian)
//	8..23  session id
//	24..   can.RecordLen-byte frame records
package record
