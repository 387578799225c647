package handshake

import (
	"testing"
	"time"

	"github.com/ws63dev/ws63flash/frame"
	"github.com/ws63dev/ws63flash/transport"
)

func TestPayloadEncoding(t *testing.T) {
	p := payload(921600)
	want := []byte{0x00, 0x10, 0x0E, 0x00, 0x08, 0x01, 0x00, 0x00}
	if string(p) != string(want) {
		t.Errorf("payload(921600) = % X, want % X", p, want)
	}
}

func TestGoldenHandshakeFrame(t *testing.T) {
	got := frame.Encode(cmdHandshake, payload(921600))
	want := []byte{
		0xEF, 0xBE, 0xAD, 0xDE, 0x12, 0x00, 0xF0, 0x0F,
		0x00, 0x10, 0x0E, 0x00, 0x08, 0x01, 0x00, 0x00,
	}
	if len(got) != 18 {
		t.Fatalf("len(got) = %d, want 18", len(got))
	}
	if string(got[:16]) != string(want) {
		t.Errorf("frame prefix = % X, want % X", got[:16], want)
	}
}

func TestRunSucceedsOnAckPrefix(t *testing.T) {
	lb := transport.NewLoopback(115200)
	lb.Feed(ackPrefix)
	lb.Feed([]byte{0xAA, 0xBB}) // trailing payload+crc, ignored

	start := time.Now()
	err := Run(lb, 921600, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run took %s, expected to succeed quickly", elapsed)
	}
	if lb.Baud() != 921600 {
		t.Errorf("Baud() = %d, want 921600", lb.Baud())
	}
}

func TestRunTimesOutWithoutAck(t *testing.T) {
	lb := transport.NewLoopback(115200)

	err := Run(lb, 921600, nil)
	var timeout *TimeoutError
	if err == nil {
		t.Fatal("Run succeeded, want timeout")
	}
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("Run error = %v (%T), want *TimeoutError", err, err)
	}
	timeout = err.(*TimeoutError)
	_ = timeout
}

func TestNegotiatorHonorsOverallDeadlineOption(t *testing.T) {
	lb := transport.NewLoopback(115200)

	n := New(WithOverallDeadline(30*time.Millisecond), WithPollInterval(time.Millisecond))

	start := time.Now()
	err := n.Run(lb, 921600)
	elapsed := time.Since(start)

	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("Run error = %v (%T), want *TimeoutError", err, err)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("Run took %s, want close to the 30ms override", elapsed)
	}
}

func TestNegotiatorHonorsSettlePauseOption(t *testing.T) {
	lb := transport.NewLoopback(115200)
	lb.Feed(ackPrefix)

	n := New(WithSettlePause(5 * time.Millisecond))

	start := time.Now()
	if err := n.Run(lb, 921600); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Run took %s, want well under the default 500ms settle pause", elapsed)
	}
}

func TestIndexOfSplitAcrossFeeds(t *testing.T) {
	lb := transport.NewLoopback(115200)

	go func() {
		time.Sleep(20 * time.Millisecond)
		lb.Feed(ackPrefix[:4])
	}()
	go func() {
		time.Sleep(40 * time.Millisecond)
		lb.Feed(ackPrefix[4:])
	}()

	err := Run(lb, 460800, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}
