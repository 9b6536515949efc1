// Package checkpoint decorates errors with the file and line they passed through,
// which results in something similar to a stacktrace.
// A checkpoint keeps both the describing error and the previous error reachable,
// so errors.Is and errors.As work for either of them.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
)

// From wraps err by a new checkpoint which only adds caller information.
// It returns nil if err == nil.
func From(err error) error {
	if err == nil || passThrough(err) {
		return err
	}

	return newCheckpoint(nil, err)
}

// Wrap adds a checkpoint to prev which is further described by err.
// It returns nil if prev == nil, so it can be used directly on the result of a call:
//  var ErrImageBroken = errors.New("the image is broken")
//
//  func load() error {
//  	err := readSomething()
//  	return checkpoint.Wrap(err, ErrImageBroken)
//  }
//
// Afterwards errors.Is(err, ErrImageBroken) matches as well as the error returned by readSomething.
func Wrap(prev, err error) error {
	if prev == nil || passThrough(prev) {
		return prev
	}

	return newCheckpoint(err, prev)
}

// Errorf creates a checkpoint for the sentinel err with a formatted detail message.
// In contrast to Wrap it always returns an error.
//  return checkpoint.Errorf(ErrInvalidCluster, "cluster %d is out of range", c)
func Errorf(err error, format string, args ...interface{}) error {
	return newCheckpoint(err, fmt.Errorf(format, args...))
}

// passThrough reports errors which must be returned undecorated.
// io.EOF and io.ErrUnexpectedEOF are compared by identity in a lot of code.
// https://github.com/golang/go/issues/39155
func passThrough(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

func newCheckpoint(err, prev error) *checkpoint {
	// Skip newCheckpoint and the exported function.
	_, file, line, ok := runtime.Caller(2)

	return &checkpoint{
		err:      err,
		prev:     prev,
		callerOk: ok,
		file:     filepath.Base(file),
		line:     line,
	}
}

type checkpoint struct {
	err  error
	prev error

	callerOk bool
	file     string
	line     int
}

func (e *checkpoint) location() string {
	if !e.callerOk {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", e.file, e.line)
}

func (e *checkpoint) Error() string {
	prevErrString := e.prev.Error()
	if _, ok := e.prev.(*checkpoint); !ok {
		prevErrString = "File: unknown\n\t" + strings.ReplaceAll(prevErrString, "\n", "\n\t")
	}

	if e.err == nil {
		return fmt.Sprintf("File: %s\n%v", e.location(), prevErrString)
	}
	return fmt.Sprintf("File: %s\n\t%v\n%v", e.location(), e.err, prevErrString)
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	if e.err == nil {
		return false
	}
	return errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	if e.err == nil {
		return false
	}
	return errors.As(e.err, target)
}

// Cause returns the first error in the chain which is not a checkpoint.
// It is meant for short user facing messages.
func Cause(err error) error {
	for {
		c, ok := err.(*checkpoint)
		if !ok {
			return err
		}
		if c.err != nil {
			return fmt.Errorf("%w: %v", c.err, Cause(c.prev))
		}
		err = c.prev
	}
}
