package controller

import "errors"

// WaitingError interrupts a reconciliation pass because a
// precondition is not met yet. The pass ends cleanly and the reason
// becomes the reported status; a later trigger retries.
type WaitingError struct {
	Reason string
}

func (e *WaitingError) Error() string { return "waiting: " + e.Reason }

// BlockedError interrupts a reconciliation pass because operator
// action is required. The reason becomes the reported status.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string { return "blocked: " + e.Reason }

func asWaiting(err error) (*WaitingError, bool) {
	var w *WaitingError
	ok := errors.As(err, &w)
	return w, ok
}

func asBlocked(err error) (*BlockedError, bool) {
	var b *BlockedError
	ok := errors.As(err, &b)
	return b, ok
}
