package handshake

import (
	"encoding/binary"
	"time"

	"github.com/ws63dev/ws63flash/frame"
	"github.com/ws63dev/ws63flash/transport"
)

const cmdHandshake = 0xF0

// ackPrefix is the bit-exact first 8 bytes of the device's handshake
// ACK frame. The host only needs to locate this prefix anywhere in its
// read buffer; the remaining payload+CRC bytes are not inspected.
var ackPrefix = []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x0C, 0x00, 0xE1, 0x1E}

// Logger receives optional trace output. nil is a valid Logger: Run
// treats a nil receiver as "do nothing".
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
}

func debug(l Logger, msg string, kv ...interface{}) {
	if l != nil {
		l.Debug(msg, kv...)
	}
}

// Config holds the Negotiator configuration.
type Config struct {
	// PollInterval is how long Run sleeps between handshake retries.
	PollInterval time.Duration

	// OverallDeadline bounds the whole negotiation. Run gives up and
	// returns a *TimeoutError once it elapses.
	OverallDeadline time.Duration

	// SettlePause is how long Run waits after switching baud, for the
	// device to settle before the caller proceeds.
	SettlePause time.Duration

	// Logger receives optional trace output.
	Logger Logger
}

func defaultConfig() Config {
	return Config{
		PollInterval:    7 * time.Millisecond,
		OverallDeadline: 10 * time.Second,
		SettlePause:     500 * time.Millisecond,
	}
}

// Option is a functional option for configuring a Negotiator.
type Option func(*Config)

// WithPollInterval sets the delay between handshake retries.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}

// WithOverallDeadline sets how long Run retries before giving up.
func WithOverallDeadline(d time.Duration) Option {
	return func(c *Config) { c.OverallDeadline = d }
}

// WithSettlePause sets the pause after a successful baud switch.
func WithSettlePause(d time.Duration) Option {
	return func(c *Config) { c.SettlePause = d }
}

// WithLogger sets a logger for the negotiation.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Negotiator drives the vendor baud-negotiation handshake: it repeats
// a handshake frame at 115200 baud until the device's ACK prefix
// appears, then switches the local baud to match.
type Negotiator struct {
	config Config
}

// New creates a Negotiator with the given options applied over the
// defaults.
func New(opts ...Option) *Negotiator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Negotiator{config: cfg}
}

// payload builds the 8-byte handshake payload for the requested baud:
// baud_le(4) || 0x08 || 0x01 || 0x00 || 0x00.
func payload(baud int) []byte {
	p := make([]byte, 8)
	binary.LittleEndian.PutUint32(p[0:4], uint32(baud))
	p[4] = 0x08
	p[5] = 0x01
	p[6] = 0x00
	p[7] = 0x00
	return p
}

// Run drives the handshake loop against port, which must already be
// open at 115200 baud with RTS de-asserted. On success it switches
// port's baud to targetBaud, pauses for the device to settle, and
// returns nil. If the overall deadline expires it returns a
// *TimeoutError and leaves port's baud unchanged; a transport error
// from Write, ReadAvailable or SetBaud is returned as is.
func (n *Negotiator) Run(port transport.Port, targetBaud int) error {
	req := frame.Encode(cmdHandshake, payload(targetBaud))

	deadline := time.Now().Add(n.config.OverallDeadline)
	var seen []byte

	for time.Now().Before(deadline) {
		if _, err := port.Write(req); err != nil {
			return err
		}

		time.Sleep(n.config.PollInterval)

		chunk, err := port.ReadAvailable()
		if err != nil {
			return err
		}
		if len(chunk) > 0 {
			seen = append(seen, chunk...)
			if idx := indexOf(seen, ackPrefix); idx >= 0 {
				debug(n.config.Logger, "handshake: ack seen", "baud", targetBaud)

				if err := port.SetBaud(targetBaud); err != nil {
					return err
				}
				time.Sleep(n.config.SettlePause)
				return nil
			}
			// Keep only enough trailing bytes to still catch a prefix
			// split across reads.
			if extra := len(seen) - len(ackPrefix) + 1; extra > 0 {
				seen = seen[extra:]
			}
		}
	}

	return &TimeoutError{Waited: n.config.OverallDeadline.String()}
}

// Run negotiates baud with default timing, constructing a Negotiator
// internally. Equivalent to New(WithLogger(log)).Run(port, targetBaud);
// kept for callers that don't need to tune the retry timing.
func Run(port transport.Port, targetBaud int, log Logger) error {
	return New(WithLogger(log)).Run(port, targetBaud)
}

func indexOf(haystack, needle []byte) int {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
