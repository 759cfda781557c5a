package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no encoding of a document exists.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Add when the id is already stored.
	ErrAlreadyExists = errors.New("document already exists")

	errIDRequired = errors.New("document ID is required")
)

// DecodeError reports a stored file whose content is not a valid document.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IOError reports a failing filesystem operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioe *IOError
	var de *DecodeError
	if errors.As(err, &ioe) || errors.As(err, &de) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
