// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beagle

import "fmt"

// ConfigError reports an invalid parameter value, a missing or
// unreadable input file, or an inconsistent sample/marker set
// discovered before the first window is processed.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "config: " + e.msg }

func newConfigError(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// FormatError reports a malformed emission record, e.g. an
// inconsistent allele count.
type FormatError struct {
	msg string
}

func (e *FormatError) Error() string { return "format: " + e.msg }

func newFormatError(format string, args ...interface{}) error {
	return &FormatError{msg: fmt.Sprintf(format, args...)}
}

// ConsistencyError reports a cross-component inconsistency detected
// at window entry: target markers not a subsequence of reference
// markers, or disagreeing sample sets between components. These
// indicate a bug in an upstream collaborator.
type ConsistencyError struct {
	msg string
}

func (e *ConsistencyError) Error() string { return "consistency: " + e.msg }

func newConsistencyError(format string, args ...interface{}) error {
	return &ConsistencyError{msg: fmt.Sprintf(format, args...)}
}

// StateError reports an operation attempted on a component that is
// not in a state that permits it, such as a window iterator with no
// pending lookahead, or a writer that has already been closed.
type StateError struct {
	msg string
}

func (e *StateError) Error() string { return "state: " + e.msg }

func newStateError(format string, args ...interface{}) error {
	return &StateError{msg: fmt.Sprintf(format, args...)}
}

// ErrWriterClosed is returned by every Writer method once
// Close has been called.
var ErrWriterClosed = &StateError{msg: "writer is closed"}
