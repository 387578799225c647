package ymodem

import (
	"fmt"
	"io"
	"time"

	"github.com/ws63dev/ws63flash/crc16"
	"github.com/ws63dev/ws63flash/transport"
)

const (
	soh   byte = 0x01
	stx   byte = 0x02
	eot   byte = 0x04
	ack   byte = 0x06
	nak   byte = 0x15
	cByte byte = 0x43

	shortBlockPayload = 128
	longBlockPayload  = 1024
)

// Logger receives optional trace output. A nil Logger is valid.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
}

func debug(l Logger, msg string, kv ...interface{}) {
	if l != nil {
		l.Debug(msg, kv...)
	}
}

// Config holds the Sender configuration.
type Config struct {
	// CWaitTimeout bounds how long Send waits for the device's 'C'
	// byte before giving up.
	CWaitTimeout time.Duration

	// PerAttemptWait bounds how long Send waits for an ACK/NAK after
	// a single block (or EOT) transmission before retransmitting.
	PerAttemptWait time.Duration

	// PerBlockDeadline bounds the total time spent retrying a single
	// block across all attempts.
	PerBlockDeadline time.Duration

	// PollInterval is the sleep between non-blocking read polls.
	PollInterval time.Duration

	// Logger receives optional trace output.
	Logger Logger
}

func defaultConfig() Config {
	return Config{
		CWaitTimeout:     5 * time.Second,
		PerAttemptWait:   1500 * time.Millisecond,
		PerBlockDeadline: 30 * time.Second,
		PollInterval:     time.Millisecond,
	}
}

// Option is a functional option for configuring a Sender.
type Option func(*Config)

// WithCWaitTimeout sets how long Send waits for the device's 'C'.
func WithCWaitTimeout(d time.Duration) Option {
	return func(c *Config) { c.CWaitTimeout = d }
}

// WithPerAttemptWait sets the ACK/NAK wait per transmission attempt.
func WithPerAttemptWait(d time.Duration) Option {
	return func(c *Config) { c.PerAttemptWait = d }
}

// WithPerBlockDeadline sets the total retry budget for a single block.
func WithPerBlockDeadline(d time.Duration) Option {
	return func(c *Config) { c.PerBlockDeadline = d }
}

// WithPollInterval sets the sleep between non-blocking read polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithLogger sets a logger for the transfer.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Sender drives a single YMODEM-CRC file transfer: a 128-byte
// file-info block 0, 1024-byte CRC-16 data blocks, and EOT/finish-block
// finalization. There is no checksum fallback and no streaming 'G'
// mode; the device is assumed to always request CRC mode by sending
// 'C'.
type Sender struct {
	config Config
}

// New creates a Sender with the given options applied over the
// defaults.
func New(opts ...Option) *Sender {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Sender{config: cfg}
}

// Send transfers the size bytes read from r as a single YMODEM-CRC
// file named name, waiting first for the device's 'C' and finishing
// with the all-zero finish block.
func (s *Sender) Send(port transport.Port, name string, size int, r io.Reader) error {
	if err := s.waitForC(port); err != nil {
		return err
	}
	debug(s.config.Logger, "ymodem: got C, sending block 0", "name", name, "size", size)

	if err := s.sendBlockWithRetry(port, 0, buildBlockZero(name, size)); err != nil {
		return err
	}

	seq := 1
	remaining := size
	buf := make([]byte, longBlockPayload)
	for remaining > 0 {
		n, err := io.ReadFull(r, buf[:min(longBlockPayload, remaining)])
		if err != nil && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("ymodem: read image data: %w", err)
		}

		payload := make([]byte, longBlockPayload)
		copy(payload, buf[:n])

		debug(s.config.Logger, "ymodem: sending data block", "seq", seq, "bytes", n)
		if err := s.sendBlockWithRetry(port, seq, payload); err != nil {
			return err
		}

		remaining -= n
		seq++
	}

	if err := s.sendEOT(port); err != nil {
		return err
	}

	debug(s.config.Logger, "ymodem: sending finish block")
	finish := make([]byte, shortBlockPayload)
	if err := s.sendBlockWithRetry(port, 0, finish); err != nil {
		return &FinishFailedError{}
	}

	return nil
}

// Send transfers an image with default timing, constructing a Sender
// internally. Equivalent to New(WithLogger(log)).Send(...); kept for
// callers that don't need to tune the retry timing.
func Send(port transport.Port, name string, size int, r io.Reader, log Logger) error {
	return New(WithLogger(log)).Send(port, name, size, r)
}

// buildBlockZero assembles the 128-byte file-info payload: ASCII name,
// a NUL terminator, the size as an uppercase "0x"-prefixed hex string,
// zero-padded to 128 bytes.
func buildBlockZero(name string, size int) []byte {
	payload := make([]byte, shortBlockPayload)
	i := copy(payload, []byte(name))
	payload[i] = 0x00
	i++
	i += copy(payload[i:], []byte(fmt.Sprintf("0x%X", size)))
	return payload
}

// waitForC polls the port for up to CWaitTimeout looking for a 0x43
// byte anywhere in the read stream.
func (s *Sender) waitForC(port transport.Port) error {
	deadline := time.Now().Add(s.config.CWaitTimeout)
	for time.Now().Before(deadline) {
		chunk, err := port.ReadAvailable()
		if err != nil {
			return err
		}
		for _, b := range chunk {
			if b == cByte {
				return nil
			}
		}
		time.Sleep(s.config.PollInterval)
	}
	return &CWaitTimeoutError{Waited: s.config.CWaitTimeout.String()}
}

// sendBlockWithRetry frames seq/payload as an SOH (128-byte payload)
// or STX (1024-byte payload) block and retransmits it until ACKed or
// the per-block deadline expires.
func (s *Sender) sendBlockWithRetry(port transport.Port, seq int, payload []byte) error {
	header := soh
	if len(payload) == longBlockPayload {
		header = stx
	}

	frame := buildFrame(header, byte(seq), payload)

	deadline := time.Now().Add(s.config.PerBlockDeadline)
	for time.Now().Before(deadline) {
		if _, err := port.Write(frame); err != nil {
			return err
		}

		reply, timedOut, err := s.waitReply(port, s.config.PerAttemptWait)
		if err != nil {
			return err
		}
		if timedOut {
			continue
		}
		if reply == ack {
			return nil
		}
		// NAK or any other byte: resend immediately.
	}

	return &BlockTimeoutError{Block: seq}
}

// buildFrame assembles header || seq || ~seq || payload || crc16_be.
func buildFrame(header, seq byte, payload []byte) []byte {
	frame := make([]byte, 0, 3+len(payload)+2)
	frame = append(frame, header, seq, 0xFF-seq)
	frame = append(frame, payload...)

	crc := crc16.Sum(payload)
	frame = append(frame, byte(crc>>8), byte(crc&0xFF))
	return frame
}

// waitReply reads a single reply byte (ACK/NAK/anything) within
// timeout, polling the port's non-blocking read.
func (s *Sender) waitReply(port transport.Port, timeout time.Duration) (reply byte, timedOut bool, err error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		chunk, err := port.ReadAvailable()
		if err != nil {
			return 0, false, err
		}
		if len(chunk) > 0 {
			return chunk[0], false, nil
		}
		time.Sleep(s.config.PollInterval)
	}
	return 0, true, nil
}

// sendEOT transmits EOT and retransmits until ACKed. There is no
// overall deadline: the device is expected to eventually acknowledge.
func (s *Sender) sendEOT(port transport.Port) error {
	for {
		if _, err := port.Write([]byte{eot}); err != nil {
			return err
		}
		reply, timedOut, err := s.waitReply(port, s.config.PerAttemptWait)
		if err != nil {
			return err
		}
		if !timedOut && reply == ack {
			return nil
		}
	}
}
