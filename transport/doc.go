// Package transport abstracts the serial link a flash session drives:
// open at a baud, switch baud mid-session, toggle RTS, write bytes, and
// poll for whatever bytes have arrived without blocking.
//
// Port is implemented by SerialPort (backed by go.bug.st/serial) for
// real hardware and by a loopback test double for scripted end-to-end
// tests.
package transport
