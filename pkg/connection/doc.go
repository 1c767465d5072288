// Package connection provides connection lifecycle management for
// Pomegranate clients and coordinators.
//
// This package handles:
//   - The reconnection delay schedule (flat phase, then doubling)
//   - The client connection loop: connect, handshake, receive,
//     back off on failure, retry forever
//   - The coordinator accept loop with per-connection handshakes
//
// # Reconnection Strategy
//
// After a failed attempt the client waits for the next delay from the
// backoff timer. The timer yields the initial delay for a configured
// number of attempts (the flat count), then doubles, then repeats:
//
//	flat=2, initial=1s  ->  1s, 1s, 2s, 2s, 4s, 4s, ...
//
// A flat count of 0 disables doubling entirely. An optional maximum
// delay saturates the schedule. The timer resets to the initial delay
// exactly when a connection attempt succeeds (handshake complete).
//
// # State Machine
//
// The client is an explicit two-level state machine. The outer level is
// the connection attempt:
//
//	DISCONNECTED -> CONNECTING -> HANDSHAKING -> CONNECTED
//	      ^______________|______________|___________|
//
// The inner level is the session: while CONNECTED, a receive loop
// delivers each message to the application and any receive error tears
// the session down to DISCONNECTED. Errors never propagate out of the
// loop; they are logged and fed into the backoff path. The loop runs
// until its context is cancelled.
//
// On every reconnection all channel state (keys, nonce counters, stream
// halves) is discarded; the handshake starts from scratch. Only the
// identity validator survives attempts, by design: it is what enforces
// server key continuity across reconnects.
package connection
