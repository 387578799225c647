// Package frame implements the vendor command/response framing used
// over the serial link: a length-prefixed frame with a fixed magic, an
// inverted-command sanity byte, and a CRC-16 trailer.
//
// # Wire Format
//
//	magic(4=EF BE AD DE) || total_len_le(2) || cmd(1) || ~cmd(1) || payload || crc16_le(2)
//
// total_len counts the whole frame including magic and crc. Encode
// builds a frame from a command byte and payload; a Decoder scans an
// incoming byte stream for the magic sequence, locks onto a frame, and
// emits it once total_len bytes have been read.
package frame
