package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection attempt (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"7,keyasint,omitempty"`  // Transport layer
	Handshake   *HandshakeEvent   `cbor:"8,keyasint,omitempty"`  // Secure layer
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`  // Session state
	Error       *ErrorEventData   `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerSecure is the handshake and encrypted channel layer.
	LayerSecure Layer = 1
	// LayerSession is the connection lifecycle layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSecure:
		return "SECURE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a transmitted or received message.
	CategoryMessage Category = 0
	// CategoryHandshake indicates handshake progress.
	CategoryHandshake Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryHandshake:
		return "HANDSHAKE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// HandshakeEvent captures key-exchange progress at the secure layer.
type HandshakeEvent struct {
	// Phase is the handshake phase that completed or failed.
	Phase HandshakePhase `cbor:"1,keyasint"`

	// KeyFingerprint is the SHA-256 fingerprint of the server public key
	// (hex), populated once the key has been received.
	KeyFingerprint string `cbor:"2,keyasint,omitempty"`
}

// HandshakePhase identifies a step of the key exchange.
type HandshakePhase uint8

const (
	// PhaseKeyReceived indicates the server public key arrived and parsed.
	PhaseKeyReceived HandshakePhase = 0
	// PhaseKeyValidated indicates the key passed identity validation.
	PhaseKeyValidated HandshakePhase = 1
	// PhaseInitializerSent indicates the encrypted initializer pair was sent.
	PhaseInitializerSent HandshakePhase = 2
	// PhaseEstablished indicates both directional channels are ready.
	PhaseEstablished HandshakePhase = 3
)

// String returns the handshake phase name.
func (p HandshakePhase) String() string {
	switch p {
	case PhaseKeyReceived:
		return "KEY_RECEIVED"
	case PhaseKeyValidated:
		return "KEY_VALIDATED"
	case PhaseInitializerSent:
		return "INITIALIZER_SENT"
	case PhaseEstablished:
		return "ESTABLISHED"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures connection and session lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySession indicates a session state change.
	StateEntitySession StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Severity of the error.
	Severity Severity `cbor:"2,keyasint"`

	// Message is the error text.
	Message string `cbor:"3,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"4,keyasint,omitempty"`
}

// Severity classifies how serious an error event is.
type Severity uint8

const (
	// SeverityError is an ordinary operational failure (I/O, timeout).
	SeverityError Severity = 0
	// SeveritySecurity is a security-relevant failure: server identity
	// change or AEAD authentication failure.
	SeveritySecurity Severity = 1
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeveritySecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}
