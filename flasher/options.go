package flasher

import (
	"github.com/ws63dev/ws63flash/handshake"
	"github.com/ws63dev/ws63flash/ymodem"
)

// Progress reports where a Flash call currently is. Passed to
// ProgressCallback between phases.
type Progress struct {
	// Phase is one of "handshake", "loader", "app", "reset".
	Phase string

	// Percentage is the overall completion percentage (0.0 to 100.0),
	// interpolated across app images during the "app" phase.
	Percentage float64

	// AppIndex is the 0-based index of the application image currently
	// being sent. Meaningful only when Phase == "app".
	AppIndex int

	// AppCount is the total number of application images in the
	// package. Meaningful only when Phase == "app".
	AppCount int
}

// ProgressCallback is invoked as a Flash call moves between phases.
// Implementations should return quickly.
type ProgressCallback func(Progress)

// Logger is an optional logging interface accepted by the flasher and
// threaded down into handshake and ymodem for trace output.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RecommendedBauds lists the baud rates the CLI and device are known
// to negotiate reliably. Other values are accepted but logged as a
// warning.
var RecommendedBauds = []int{
	115200, 230400, 460800, 500000, 576000,
	921600, 1000000, 1152000, 1500000, 2000000,
}

// IsRecommendedBaud reports whether baud appears in RecommendedBauds.
func IsRecommendedBaud(baud int) bool {
	for _, b := range RecommendedBauds {
		if b == baud {
			return true
		}
	}
	return false
}

// Config holds the Flasher configuration.
type Config struct {
	// Logger receives trace output (optional).
	Logger Logger

	// ProgressCallback is called between phases (optional).
	ProgressCallback ProgressCallback

	// HandshakeOptions is passed through to the handshake.Negotiator
	// constructed for each Flash call, letting callers tune the
	// negotiation's poll interval, overall deadline, and settle pause.
	HandshakeOptions []handshake.Option

	// YmodemOptions is passed through to the ymodem.Sender constructed
	// for each Flash call and used for every image transfer in it,
	// letting callers tune the 'C'-wait
	// timeout, per-attempt wait, and per-block deadline.
	YmodemOptions []ymodem.Option
}

func defaultConfig() Config {
	return Config{}
}

// Option is a functional option for configuring a Flasher.
type Option func(*Config)

// WithLogger sets a logger for the flash session.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets a callback invoked as the flash session
// moves between phases.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = cb
	}
}

// WithHandshakeOptions passes opts through to the handshake.Negotiator
// used for baud negotiation.
func WithHandshakeOptions(opts ...handshake.Option) Option {
	return func(c *Config) {
		c.HandshakeOptions = append(c.HandshakeOptions, opts...)
	}
}

// WithYmodemOptions passes opts through to the ymodem.Sender used for
// every image transfer (loader and app images alike).
func WithYmodemOptions(opts ...ymodem.Option) Option {
	return func(c *Config) {
		c.YmodemOptions = append(c.YmodemOptions, opts...)
	}
}
