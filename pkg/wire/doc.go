// Package wire implements the binary protocol carried on an Airspeed link.
//
// The link transports L2CAP frames: a 4-byte header (payload length and
// channel ID, both little-endian) followed by the channel payload. Three
// channels are in use:
//
//	0x0004  ATT       attribute protocol (MTU exchange, reads, writes,
//	                  notifications)
//	0x0005  SIGNAL    LE signaling (connection parameter updates)
//	0x0006  SECURITY  pairing (public key exchange)
//
// # Layering
//
//	+---------------------------------------+
//	|  ATT PDU / signal PDU / pairing PDU   |
//	+---------------------------------------+
//	|  L2CAP frame (len u16 LE, cid u16 LE) |
//	+---------------------------------------+
//	|  link transport (pkg/transport)       |
//	+---------------------------------------+
//
// Each PDU type provides Marshal; ParseAtt, ParseSignal, and ParseSMP
// decode a channel payload into its typed PDU. All multi-byte integers on
// the wire are little-endian.
//
// # MTU
//
// The ATT MTU starts at DefaultMTU (23) and may be raised by an MTU
// exchange up to MaxMTU (512). A handle value notification spends
// NotifyOverhead (3) bytes on its opcode and handle, so the usable
// payload per notification is MTU - 3.
package wire
