package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
	ErrUnavailable  = errors.New("unavailable")
	ErrExtraction   = errors.New("extraction failed")
	ErrTaskTimeout  = errors.New("task timeout")
	ErrReduction    = errors.New("reduction failed")
	ErrTotalFailure = errors.New("total failure")
	ErrEmptyResult  = errors.New("empty result")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTaskTimeout)
}

func IsExtraction(err error) bool {
	return errors.Is(err, ErrExtraction)
}

func IsTotalFailure(err error) bool {
	return errors.Is(err, ErrTotalFailure)
}
