package transport

// MessageSender sends one discrete message per call.
//
// Implementations are provided by the raw framing layer (FrameWriter) and
// by the encrypted channel layer, so handshake and application code work
// uniformly over either. An in-memory pipe can substitute for a socket in
// tests.
type MessageSender interface {
	// Send transmits msg as one unit. After an error the underlying
	// stream must be treated as unusable.
	Send(msg []byte) error
}

// MessageReceiver receives one discrete message per call.
type MessageReceiver interface {
	// Receive blocks until one complete message is available and
	// returns its payload.
	Receive() ([]byte, error)
}

// MessageChannel combines sending and receiving over one stream.
type MessageChannel interface {
	MessageSender
	MessageReceiver
}

// Compile-time interface satisfaction checks.
var (
	_ MessageSender   = (*FrameWriter)(nil)
	_ MessageReceiver = (*FrameReader)(nil)
	_ MessageChannel  = (*Framer)(nil)
)
