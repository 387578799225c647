// Package flasher sequences a complete WS63 flash session: open the
// transport, negotiate baud via handshake, transfer the loader image
// with YMODEM, then for each application image send a DOWNLOAD
// command and transfer it, and finally reset the device.
//
// Example:
//
//	f := flasher.New(flasher.WithProgressCallback(func(p flasher.Progress) {
//	    fmt.Printf("[%s] %.0f%%\n", p.Phase, p.Percentage)
//	}))
//	err := f.Flash(context.Background(), "firmware.fwpkg", "/dev/ttyUSB0", 921600)
package flasher
