// Package pairing implements the just-works pairing exchange that
// turns a fresh link into a bonded one.
//
// Both sides trade ephemeral P-256 public keys over the security
// channel and stretch the ECDH shared secret into a 32-byte long term
// key bound to the two link identities. The Initiator drives the
// exchange from the central side; the Responder answers on the
// peripheral. Neither touches the transport: callers move the PDUs
// and decide when to switch the link into sealed mode (the responder
// right after its public key is sent, the initiator right after the
// responder's key arrives).
package pairing
