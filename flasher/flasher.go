package flasher

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ws63dev/ws63flash/frame"
	"github.com/ws63dev/ws63flash/fwpkg"
	"github.com/ws63dev/ws63flash/handshake"
	"github.com/ws63dev/ws63flash/transport"
	"github.com/ws63dev/ws63flash/ymodem"
)

const (
	cmdDownload = 0xD2
	cmdReset    = 0x87

	handshakeBaud   = 115200
	eraseGranule    = 8192
	interImagePause = 100 * time.Millisecond

	// loaderPercentage is the fixed milestone reported once the
	// handshake completes and the loader transfer begins; the
	// remaining 5%-100% range is interpolated across app images.
	loaderPercentage = 5
)

// Flasher sequences a full flash session against one device.
//
// Flasher is safe for concurrent use after construction, but each
// Flash call exclusively owns its own transport for its duration.
type Flasher struct {
	config Config
}

// New creates a Flasher with the given options applied over the
// defaults.
func New(opts ...Option) *Flasher {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Flasher{config: cfg}
}

// Flash opens port at 115200 baud, runs the handshake to targetBaud,
// sends the package's loader image, then each application image in
// turn, and finally resets the device. The transport is closed on
// every exit path.
func (f *Flasher) Flash(ctx context.Context, pkgPath, port string, targetBaud int) error {
	p, err := transport.Open(port, handshakeBaud)
	if err != nil {
		return fmt.Errorf("flasher: open transport: %w", err)
	}
	defer p.Close()

	return f.flashOverPort(ctx, pkgPath, p, targetBaud)
}

// flashOverPort runs the full sequence over an already-open transport.
// Split out from Flash so tests can drive it against a scripted Port
// double instead of a real OS serial device.
func (f *Flasher) flashOverPort(ctx context.Context, pkgPath string, p transport.Port, targetBaud int) error {
	if !IsRecommendedBaud(targetBaud) {
		f.logInfo("baud not in recommended list, proceeding anyway", "baud", targetBaud)
	}

	pkg, file, err := fwpkg.Open(pkgPath)
	if err != nil {
		return fmt.Errorf("flasher: open package: %w", err)
	}
	defer file.Close()

	loader, ok := pkg.Loader()
	if !ok {
		return &NoLoaderError{Path: pkgPath}
	}
	apps := pkg.Apps()

	if err := p.SetRTS(false); err != nil {
		return fmt.Errorf("flasher: de-assert rts: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	negotiator := handshake.New(f.handshakeOptions()...)
	f.reportProgress(Progress{Phase: "handshake", Percentage: 0})
	if err := negotiator.Run(p, targetBaud); err != nil {
		return fmt.Errorf("flasher: handshake: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	f.reportProgress(Progress{Phase: "loader", Percentage: loaderPercentage})
	loaderReader := loader.ImageReader(file)
	sender := ymodem.New(f.ymodemOptions()...)
	if err := sender.Send(p, loader.Name, int(loader.Length), loaderReader); err != nil {
		return fmt.Errorf("flasher: send loader: %w", err)
	}

	// The device may or may not reply here before moving on; either
	// way we proceed (see the orchestrator's tolerant-receive note).
	f.receiveFrameTolerant(p)

	for i, app := range apps {
		if err := ctx.Err(); err != nil {
			return err
		}

		f.reportProgress(Progress{
			Phase:      "app",
			Percentage: appPercentage(i, len(apps)),
			AppIndex:   i,
			AppCount:   len(apps),
		})

		eraseSize := eraseSizeFor(app.Length)
		downloadFrame := frame.Encode(cmdDownload, downloadPayload(app.BurnAddr, app.Length, eraseSize))
		if _, err := p.Write(downloadFrame); err != nil {
			return fmt.Errorf("flasher: send download frame for %s: %w", app.Name, err)
		}
		if _, err := frame.NewDecoder().Next(p); err != nil {
			return fmt.Errorf("flasher: download reply for %s: %w", app.Name, err)
		}

		appReader := app.ImageReader(file)
		if err := sender.Send(p, app.Name, int(app.Length), appReader); err != nil {
			return fmt.Errorf("flasher: send app %s: %w", app.Name, err)
		}

		time.Sleep(interImagePause)
	}

	f.reportProgress(Progress{Phase: "reset", Percentage: 100})
	resetFrame := frame.Encode(cmdReset, []byte{0x00, 0x00})
	if _, err := p.Write(resetFrame); err != nil {
		return fmt.Errorf("flasher: send reset frame: %w", err)
	}
	f.receiveFrameTolerant(p)

	return nil
}

// appPercentage interpolates overall completion across the app-image
// loop: loaderPercentage at the first app, approaching 100 as the last
// app begins.
func appPercentage(index, count int) float64 {
	if count == 0 {
		return loaderPercentage
	}
	return loaderPercentage + (float64(index)/float64(count))*(100-loaderPercentage)
}

// handshakeOptions builds the options passed to handshake.New,
// threading through the configured logger and any caller overrides.
func (f *Flasher) handshakeOptions() []handshake.Option {
	opts := []handshake.Option{handshake.WithLogger(f.config.Logger)}
	return append(opts, f.config.HandshakeOptions...)
}

// ymodemOptions builds the options passed to ymodem.New, threading
// through the configured logger and any caller overrides.
func (f *Flasher) ymodemOptions() []ymodem.Option {
	opts := []ymodem.Option{ymodem.WithLogger(f.config.Logger)}
	return append(opts, f.config.YmodemOptions...)
}

// eraseSizeFor rounds length up to the next 8192-byte granule.
func eraseSizeFor(length uint32) uint32 {
	return uint32((int(length) + eraseGranule - 1) / eraseGranule * eraseGranule)
}

// downloadPayload builds the 14-byte DOWNLOAD command payload:
// burn_addr_le(4) || length_le(4) || erase_size_le(4) || 0x00 || 0xFF.
func downloadPayload(burnAddr, length, eraseSize uint32) []byte {
	p := make([]byte, 14)
	binary.LittleEndian.PutUint32(p[0:4], burnAddr)
	binary.LittleEndian.PutUint32(p[4:8], length)
	binary.LittleEndian.PutUint32(p[8:12], eraseSize)
	p[12] = 0x00
	p[13] = 0xFF
	return p
}

// receiveFrameTolerant waits for one reply frame and discards the
// result: a bad CRC, a bad cmd_inv, or a timeout are all treated as
// "no usable reply", which this orchestrator does not treat as fatal.
func (f *Flasher) receiveFrameTolerant(p transport.Port) {
	dec := frame.NewDecoder()
	if _, err := dec.Next(p); err != nil {
		f.logDebug("reply frame not usable, continuing", "error", err)
	}
}

func (f *Flasher) reportProgress(p Progress) {
	if f.config.ProgressCallback != nil {
		f.config.ProgressCallback(p)
	}
}

func (f *Flasher) logDebug(msg string, kv ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Debug(msg, kv...)
	}
}

func (f *Flasher) logInfo(msg string, kv ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Info(msg, kv...)
	}
}
