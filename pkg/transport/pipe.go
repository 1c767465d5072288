package transport

import "net"

// NewPipe returns two framers connected by an in-memory, full-duplex
// stream. Frames sent on one end are received on the other. Useful for
// exercising handshake and channel code without a real socket.
//
// The underlying net.Pipe is synchronous: a Send blocks until the peer
// reads, so the two ends must be driven from separate goroutines.
func NewPipe() (*Framer, *Framer) {
	a, b := net.Pipe()
	return NewFramer(a), NewFramer(b)
}
