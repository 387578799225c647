// Package handshake implements the vendor baud-negotiation exchange
// that precedes a flash session: the host repeatedly sends a handshake
// frame at 115200 baud until the device's ACK prefix appears in the
// read buffer, then switches the local baud to match.
//
// Timing is tunable via Negotiator:
//
//	n := handshake.New(handshake.WithOverallDeadline(15 * time.Second))
//	err := n.Run(port, 921600)
package handshake
