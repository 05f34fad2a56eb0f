// Package socketcan adapts a Linux SocketCAN raw socket to the transport
// contract. The read half and the write half share the file descriptor but
// keep separate buffers; the kernel serializes nothing between them.
package socketcan
