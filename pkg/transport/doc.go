// Package transport carries L2CAP frames between a peripheral and a
// central over TCP.
//
// # Protocol Stack
//
//	┌─────────────────────────────────────┐
//	│   ATT / Signaling / Security PDUs   │
//	├─────────────────────────────────────┤
//	│  L2CAP framing (len u16, cid u16)   │
//	├─────────────────────────────────────┤
//	│   optional ChaCha20-Poly1305 seal   │
//	├─────────────────────────────────────┤
//	│                TCP                  │
//	└─────────────────────────────────────┘
//
// # Link establishment
//
// Before any L2CAP traffic, each side sends one fixed-size hello
// carrying a magic, the protocol version, its role and its identity.
// The acceptor answers with a status byte: a version it does not speak
// or a busy peripheral refuses the link at this point, before the
// caller ever sees a connection.
//
// # Supervision
//
// A connection is considered lost when nothing arrives within the
// supervision timeout (default 4s, adjustable through a connection
// parameter update). The watchdog sends signaling echo requests when
// the link goes quiet; any inbound frame, echo or not, feeds it.
// Echoes are handled inside the transport and never surface to frame
// handlers.
//
// # Sealing
//
// After pairing, both sides switch the link into sealed mode: frame
// payloads are encrypted and authenticated with ChaCha20-Poly1305
// under the pairing-derived key, with the frame header as associated
// data and a per-direction message counter as nonce. The framing
// stays cleartext so an observer sees sizes and channels but no
// attribute data.
package transport
