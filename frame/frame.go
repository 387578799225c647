package frame

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ws63dev/ws63flash/crc16"
)

// magicBytes is the little-endian encoding of 0xDEADBEEF.
var magicBytes = [4]byte{0xEF, 0xBE, 0xAD, 0xDE}

// minFrameLen is magic(4) + total_len(2) + cmd(1) + cmd_inv(1) + crc(2).
const minFrameLen = 10

// Frame is a decoded vendor command/response.
type Frame struct {
	Cmd     byte
	Payload []byte
}

// Encode assembles a complete wire frame for cmd and payload.
func Encode(cmd byte, payload []byte) []byte {
	totalLen := len(payload) + minFrameLen

	buf := make([]byte, 0, totalLen)
	buf = append(buf, magicBytes[:]...)

	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, uint16(totalLen))
	buf = append(buf, lenBytes...)

	buf = append(buf, cmd, cmd^0xFF)
	buf = append(buf, payload...)

	crc := crc16.Sum(buf)
	crcBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(crcBytes, crc)
	buf = append(buf, crcBytes...)

	return buf
}

// Decode validates and parses a complete in-memory frame buffer,
// exactly as produced by Encode.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < minFrameLen {
		return Frame{}, fmt.Errorf("frame: buffer too short: %d bytes, minimum %d", len(buf), minFrameLen)
	}
	if [4]byte(buf[0:4]) != magicBytes {
		return Frame{}, fmt.Errorf("frame: bad magic: % X", buf[0:4])
	}

	totalLen := int(binary.LittleEndian.Uint16(buf[4:6]))
	if totalLen < minFrameLen || totalLen != len(buf) {
		return Frame{}, fmt.Errorf("frame: total_len %d does not match buffer length %d", totalLen, len(buf))
	}

	cmd := buf[6]
	cmdInv := buf[7]
	if cmdInv != cmd^0xFF {
		return Frame{}, &BadCmdInvError{Cmd: cmd, CmdInv: cmdInv}
	}

	payload := buf[8 : totalLen-2]

	wantCrc := binary.LittleEndian.Uint16(buf[totalLen-2 : totalLen])
	gotCrc := crc16.Sum(buf[:totalLen-2])
	if wantCrc != gotCrc {
		return Frame{}, &BadCrcError{Want: wantCrc, Got: gotCrc}
	}

	return Frame{Cmd: cmd, Payload: payload}, nil
}

// Source is the byte stream a Decoder polls for incoming frames: a
// non-blocking read that returns whatever is currently buffered.
type Source interface {
	ReadAvailable() ([]byte, error)
}

// receiverState is the Decoder's scan/lock state.
type receiverState int

const (
	stateSync receiverState = iota
	stateBody
)

// Decoder implements the scan/lock byte state machine: hunt for the
// magic sequence, then read the declared total_len, then validate.
type Decoder struct {
	timeout      time.Duration
	pollInterval time.Duration
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithTimeout overrides the default 5s idle deadline.
func WithTimeout(d time.Duration) DecoderOption {
	return func(dec *Decoder) { dec.timeout = d }
}

// WithPollInterval overrides the default poll sleep between empty reads.
func WithPollInterval(d time.Duration) DecoderOption {
	return func(dec *Decoder) { dec.pollInterval = d }
}

// NewDecoder builds a Decoder with the given options applied over the
// defaults (5s timeout, 1ms poll interval).
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		timeout:      5 * time.Second,
		pollInterval: time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next scans src for one complete frame. The deadline is an idle
// timeout: it is pushed out every time new bytes arrive, so a slow but
// steady trickle of bytes does not time out early.
func (d *Decoder) Next(src Source) (Frame, error) {
	state := stateSync
	syncIdx := 0
	var body []byte
	totalLen := 0

	deadline := time.Now().Add(d.timeout)

	for {
		if time.Now().After(deadline) {
			return Frame{}, &TimeoutError{Waited: d.timeout.String()}
		}

		chunk, err := src.ReadAvailable()
		if err != nil {
			return Frame{}, fmt.Errorf("frame: read: %w", err)
		}

		if len(chunk) == 0 {
			time.Sleep(d.pollInterval)
			continue
		}
		deadline = time.Now().Add(d.timeout)

		for _, b := range chunk {
			switch state {
			case stateSync:
				if b == magicBytes[syncIdx] {
					syncIdx++
					if syncIdx == len(magicBytes) {
						body = append([]byte{}, magicBytes[:]...)
						state = stateBody
						syncIdx = 0
					}
				} else {
					syncIdx = 0
					if b == magicBytes[0] {
						syncIdx = 1
					}
				}
			case stateBody:
				body = append(body, b)
				if len(body) == 6 {
					totalLen = int(binary.LittleEndian.Uint16(body[4:6]))
					if totalLen < minFrameLen {
						// Bogus length; resync.
						state = stateSync
						syncIdx = 0
						body = nil
						totalLen = 0
						continue
					}
				}
				if totalLen > 0 && len(body) == totalLen {
					return Decode(body)
				}
			}
		}
	}
}
