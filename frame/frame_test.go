package frame

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	buf := Encode(0xF0, payload)

	f, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if f.Cmd != 0xF0 {
		t.Errorf("Cmd = 0x%02X, want 0xF0", f.Cmd)
	}
	if string(f.Payload) != string(payload) {
		t.Errorf("Payload = % X, want % X", f.Payload, payload)
	}
}

func TestEncodeMagicAndCmdInv(t *testing.T) {
	buf := Encode(0x3C, nil)

	if [4]byte(buf[0:4]) != magicBytes {
		t.Errorf("magic = % X, want % X", buf[0:4], magicBytes)
	}
	if buf[6] != 0x3C || buf[7] != 0x3C^0xFF {
		t.Errorf("cmd/cmd_inv = 0x%02X/0x%02X, want 0x3C/0x%02X", buf[6], buf[7], 0x3C^0xFF)
	}
}

func TestDecodeRejectsBadCrc(t *testing.T) {
	buf := Encode(0xF0, []byte{0xAA})
	buf[len(buf)-1] ^= 0x01

	_, err := Decode(buf)
	var badCrc *BadCrcError
	if !errors.As(err, &badCrc) {
		t.Fatalf("Decode error = %v, want *BadCrcError", err)
	}
}

func TestDecodeRejectsBadCmdInv(t *testing.T) {
	buf := Encode(0xF0, []byte{0xAA})
	buf[7] ^= 0x01

	_, err := Decode(buf)
	var badCmdInv *BadCmdInvError
	if !errors.As(err, &badCmdInv) {
		t.Fatalf("Decode error = %v, want *BadCmdInvError", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	_, err := Decode([]byte{0xEF, 0xBE, 0xAD})
	if err == nil {
		t.Fatal("Decode of truncated buffer succeeded, want error")
	}
}

// chunkSource feeds pre-split byte chunks to a Decoder, one per
// ReadAvailable call, then returns empty reads forever.
type chunkSource struct {
	chunks [][]byte
	i      int
}

func (s *chunkSource) ReadAvailable() ([]byte, error) {
	if s.i >= len(s.chunks) {
		return nil, nil
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func TestDecoderNextAssemblesAcrossChunks(t *testing.T) {
	full := Encode(0xF0, []byte{0x10, 0x20, 0x30})

	src := &chunkSource{chunks: [][]byte{
		{0x99, 0x98}, // noise before sync
		full[0:3],
		full[3:7],
		full[7:],
	}}

	d := NewDecoder(WithPollInterval(0))
	f, err := d.Next(src)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Cmd != 0xF0 {
		t.Errorf("Cmd = 0x%02X, want 0xF0", f.Cmd)
	}
	if string(f.Payload) != "\x10\x20\x30" {
		t.Errorf("Payload = % X", f.Payload)
	}
}

func TestDecoderNextResyncsAfterGarbage(t *testing.T) {
	full := Encode(0x10, []byte{0xAB})

	garbage := []byte{0xEF, 0xBE, 0x00, 0x00} // looks like a partial magic, then breaks
	src := &chunkSource{chunks: [][]byte{
		garbage,
		full,
	}}

	d := NewDecoder(WithPollInterval(0))
	f, err := d.Next(src)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Cmd != 0x10 {
		t.Errorf("Cmd = 0x%02X, want 0x10", f.Cmd)
	}
}

type emptySource struct{}

func (emptySource) ReadAvailable() ([]byte, error) { return nil, nil }

func TestDecoderNextTimesOut(t *testing.T) {
	d := NewDecoder(WithTimeout(0), WithPollInterval(0))
	_, err := d.Next(emptySource{})

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Next error = %v, want *TimeoutError", err)
	}
}
