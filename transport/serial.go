package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialPort is a Port backed by a real OS serial device via
// go.bug.st/serial.
type SerialPort struct {
	port serial.Port
}

// Open opens name (e.g. "/dev/ttyUSB0" or "COM4") at baud, 8 data
// bits, no parity, one stop bit, with both RTS and DTR de-asserted.
func Open(name string, baud int) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate:          baud,
		DataBits:          8,
		StopBits:          serial.OneStopBit,
		Parity:            serial.NoParity,
		InitialStatusBits: &serial.ModemOutputBits{RTS: false, DTR: false},
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(ReadWriteTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("transport: set read timeout: %w", err)
	}

	return &SerialPort{port: p}, nil
}

func (s *SerialPort) SetBaud(baud int) error {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if err := s.port.SetMode(mode); err != nil {
		return fmt.Errorf("transport: set baud %d: %w", baud, err)
	}
	return nil
}

func (s *SerialPort) SetRTS(on bool) error {
	if err := s.port.SetRTS(on); err != nil {
		return fmt.Errorf("transport: set rts: %w", err)
	}
	return nil
}

func (s *SerialPort) Write(p []byte) (int, error) {
	n, err := s.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: write: %w", err)
	}
	return n, nil
}

// ReadAvailable performs a single Read of up to 4096 bytes and returns
// what it got. go.bug.st/serial has no native non-blocking probe, so
// this bounded Read stands in for one poll cycle: when nothing is
// buffered it blocks for up to the port's read timeout
// (ReadWriteTimeout) before returning an empty slice.
func (s *SerialPort) ReadAvailable() ([]byte, error) {
	buf := make([]byte, 4096)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return buf[:n], nil
}

func (s *SerialPort) BytesAvailable() (int, error) {
	n, err := s.port.ReadyToRead()
	if err != nil {
		return 0, fmt.Errorf("transport: bytes available: %w", err)
	}
	return int(n), nil
}

func (s *SerialPort) Close() error {
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}
