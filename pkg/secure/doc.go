// Package secure implements the Pomegranate encrypted channel layer.
//
// The layer establishes two directional AEAD channels over a framed
// byte stream using a hybrid asymmetric/symmetric handshake:
//
//  1. The server sends its RSA-2048 public key (PKCS#1 DER) as one
//     plaintext frame.
//  2. The client validates the key against its trust-on-first-use store,
//     generates a fresh key/nonce initializer per direction, and sends
//     the pair back encrypted with RSA PKCS#1 v1.5.
//  3. Both sides construct a Sender and a Receiver from the agreed
//     initializers (client sends on cts, receives on stc; the server is
//     mirrored).
//
// # Encryption
//
// Each direction is encrypted with ChaCha20-Poly1305 under its own
// 256-bit key. Nonces are never transmitted: both peers derive them from
// a shared 96-bit counter seeded during the handshake and advanced by
// exactly one per message. This requires the transport to deliver every
// frame exactly once and in order; any loss, duplication, or reordering
// permanently desynchronizes the channel, surfaces as ErrDecryptFailed,
// and requires a fresh handshake.
//
// # Trust Model
//
// Only the server is authenticated, and only by key continuity: the
// first key seen is pinned and every later handshake must present the
// byte-identical key. Nothing protects the very first contact from
// impersonation, and no mechanism authenticates the client.
package secure
