package transport

import (
	"bytes"
	"sync"
)

// Loopback is an in-memory Port double for scripted device behavior in
// tests: writes from the code under test land in Written, and bytes
// queued with Feed are handed back on the next ReadAvailable call.
type Loopback struct {
	mu      sync.Mutex
	written bytes.Buffer
	pending bytes.Buffer
	baud    int
	rts     bool

	// OnWrite, if set, is invoked synchronously after every Write with
	// the bytes just written, letting a test script react (e.g. queue
	// an ACK) without a separate polling goroutine.
	OnWrite func(p []byte)
}

// NewLoopback returns a Loopback opened at baud.
func NewLoopback(baud int) *Loopback {
	return &Loopback{baud: baud}
}

// Feed queues bytes to be returned by a future ReadAvailable call, as
// if the scripted device had just transmitted them.
func (l *Loopback) Feed(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending.Write(p)
}

// Written returns a copy of everything written to the loopback so far.
func (l *Loopback) Written() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte{}, l.written.Bytes()...)
}

// Baud returns the currently configured baud rate.
func (l *Loopback) Baud() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baud
}

// RTS returns the last value passed to SetRTS.
func (l *Loopback) RTS() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rts
}

func (l *Loopback) SetBaud(baud int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baud = baud
	return nil
}

func (l *Loopback) SetRTS(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rts = on
	return nil
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	n, err := l.written.Write(p)
	onWrite := l.OnWrite
	l.mu.Unlock()

	if onWrite != nil {
		onWrite(p)
	}
	return n, err
}

func (l *Loopback) ReadAvailable() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending.Len() == 0 {
		return nil, nil
	}
	out := make([]byte, l.pending.Len())
	copy(out, l.pending.Bytes())
	l.pending.Reset()
	return out, nil
}

func (l *Loopback) BytesAvailable() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending.Len(), nil
}

func (l *Loopback) Close() error {
	return nil
}
