package handshake

import "fmt"

// TimeoutError indicates the device never produced the expected ACK
// prefix before the overall handshake deadline expired.
type TimeoutError struct {
	Waited string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("handshake: timed out after %s waiting for ack", e.Waited)
}
