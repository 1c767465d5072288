// Package transport provides the Pomegranate message framing layer.
//
// The transport layer turns a raw ordered byte stream into discrete
// message send/receive operations:
//   - Length-prefixed framing (8-byte big-endian length + payload)
//   - Optional maximum frame size enforcement
//   - Capability interfaces implemented by both the raw framing layer
//     and the encrypted channel layer on top of it
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      Opaque messages           │
//	├────────────────────────────────┤
//	│  AEAD channel (pkg/secure)     │
//	├────────────────────────────────┤
//	│ Length-Prefix Framing (8B BE)  │
//	├────────────────────────────────┤
//	│   Ordered byte stream (TCP)    │
//	└────────────────────────────────┘
//
// There is no magic number or version byte. A frame carries exactly one
// message; the payload is opaque to this layer.
//
// # Frame Size
//
// The base protocol places no upper bound on the length field beyond the
// 64-bit range. Because the reader allocates a buffer sized by the
// peer-supplied length before any cryptographic check, an unbounded
// reader is exposed to resource exhaustion by an untrusted peer. Callers
// talking to untrusted peers should set a maximum frame size; a zero
// maximum keeps the unbounded base behavior.
package transport
