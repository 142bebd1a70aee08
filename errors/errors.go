// Package errors provides error constructors that record the call site,
// so a failure deep in a provider or the turn loop can be traced without
// stack traces.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// caller returns the short file name and line of the caller's caller.
func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// New creates a new error annotated with the caller's file and line.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including the caller's file and line) to an existing
// error. Returns nil if err is nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}
