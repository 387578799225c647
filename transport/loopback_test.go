package transport

import "testing"

func TestLoopbackWriteAndFeed(t *testing.T) {
	l := NewLoopback(115200)

	if _, err := l.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if string(l.Written()) != "hello" {
		t.Errorf("Written() = %q, want %q", l.Written(), "hello")
	}

	l.Feed([]byte("world"))
	n, err := l.BytesAvailable()
	if err != nil {
		t.Fatalf("BytesAvailable failed: %v", err)
	}
	if n != 5 {
		t.Errorf("BytesAvailable() = %d, want 5", n)
	}

	got, err := l.ReadAvailable()
	if err != nil {
		t.Fatalf("ReadAvailable failed: %v", err)
	}
	if string(got) != "world" {
		t.Errorf("ReadAvailable() = %q, want %q", got, "world")
	}

	got, err = l.ReadAvailable()
	if err != nil || len(got) != 0 {
		t.Errorf("second ReadAvailable() = %q, %v, want empty, nil", got, err)
	}
}

func TestLoopbackBaudAndRTS(t *testing.T) {
	l := NewLoopback(115200)
	if l.Baud() != 115200 {
		t.Errorf("Baud() = %d, want 115200", l.Baud())
	}

	if err := l.SetBaud(921600); err != nil {
		t.Fatalf("SetBaud failed: %v", err)
	}
	if l.Baud() != 921600 {
		t.Errorf("Baud() after SetBaud = %d, want 921600", l.Baud())
	}

	if err := l.SetRTS(true); err != nil {
		t.Fatalf("SetRTS failed: %v", err)
	}
	if !l.RTS() {
		t.Error("RTS() = false, want true after SetRTS(true)")
	}
}
