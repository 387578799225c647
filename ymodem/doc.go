// Package ymodem implements the sender side of YMODEM-CRC: a 128-byte
// file-info block 0, 1024-byte CRC-16 data blocks, and EOT/finish-block
// finalization, driven over a transport.Port. There is no checksum
// fallback and no streaming 'G' mode; the device is assumed to always
// request CRC mode by sending 'C'.
//
// Retry timing is tunable via Sender:
//
//	s := ymodem.New(ymodem.WithPerBlockDeadline(60 * time.Second))
//	err := s.Send(port, "app.bin", len(data), bytes.NewReader(data))
package ymodem
