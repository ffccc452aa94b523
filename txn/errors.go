package txn

import (
	"errors"
	"fmt"
)

type AbortCause int

const (
	TimestampOrder AbortCause = iota + 1
	Deadlock
	PrepareFail
	Timeout
	ConstraintViolation
	TypeMismatch
	UserAbort
)

func (ac AbortCause) String() string {
	switch ac {
	case TimestampOrder:
		return "timestamp order"
	case Deadlock:
		return "deadlock"
	case PrepareFail:
		return "prepare fail"
	case Timeout:
		return "timeout"
	case ConstraintViolation:
		return "constraint violation"
	case TypeMismatch:
		return "type mismatch"
	case UserAbort:
		return "user abort"
	}
	return fmt.Sprintf("abort cause %d", int(ac))
}

// Restartable causes are absorbed by the coordinator's retry loop until the
// restart bound is exhausted; the rest surface immediately.
func (ac AbortCause) Restartable() bool {
	switch ac {
	case TimestampOrder, Deadlock, PrepareFail, Timeout:
		return true
	}
	return false
}

type AbortError struct {
	Cause     AbortCause
	Exhausted bool
	Err       error
}

func (ae *AbortError) Error() string {
	s := fmt.Sprintf("txn: aborted: %s", ae.Cause)
	if ae.Exhausted {
		s += " (restarts exhausted)"
	}
	if ae.Err != nil {
		s += ": " + ae.Err.Error()
	}
	return s
}

func (ae *AbortError) Unwrap() error {
	return ae.Err
}

func Aborted(ac AbortCause, err error) *AbortError {
	return &AbortError{Cause: ac, Err: err}
}

// IsAborted returns the AbortError wrapped anywhere in err.
func IsAborted(err error) (*AbortError, bool) {
	var ae *AbortError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
