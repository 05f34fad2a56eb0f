// Package transport defines the adapter contract between the pipeline and
// a CAN link (USB gateway, SocketCAN, in-memory bus).
//
// Adapters must honor the timeout passed to Receive and Send. Fatal errors
// wrap ErrDisconnected or ErrDeviceFault; ErrTimeout is never fatal.
package transport
