package ymodem

import "fmt"

// CWaitTimeoutError indicates the device never sent the 'C' CRC-mode
// request within the initial 5s window.
type CWaitTimeoutError struct {
	Waited string
}

func (e *CWaitTimeoutError) Error() string {
	return fmt.Sprintf("ymodem: timed out after %s waiting for 'C'", e.Waited)
}

// BlockTimeoutError indicates a block (block 0 or a data block) was
// retransmitted for the full per-block deadline without ever being
// ACKed.
type BlockTimeoutError struct {
	Block int
}

func (e *BlockTimeoutError) Error() string {
	return fmt.Sprintf("ymodem: block %d timed out without ack", e.Block)
}

// FinishFailedError indicates the all-zero finish block was not ACKed
// within its retransmission window.
type FinishFailedError struct{}

func (e *FinishFailedError) Error() string {
	return "ymodem: finish block failed"
}
