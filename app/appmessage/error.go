// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package appmessage

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNeedMoreData is returned by DecodeEnvelope when the buffer does not yet
// hold a complete frame. It is not a failure: the caller is expected to read
// more bytes from the stream and retry.
var ErrNeedMoreData = errors.New("need more data")

// Framing and payload violations. Every MessageError wraps exactly one of
// these, so callers can classify failures with errors.Is.
var (
	// ErrInvalidMagic signifies a frame that belongs to a different network.
	ErrInvalidMagic = errors.New("invalid network magic")

	// ErrChecksumMismatch signifies a payload whose double-SHA256 prefix
	// doesn't match the checksum in its header.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrInvalidCommand signifies a command name that is empty, too long or
	// not printable ASCII padded with NUL bytes.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrTruncatedPayload signifies a payload that ends in the middle of a
	// field.
	ErrTruncatedPayload = errors.New("truncated payload")

	// ErrPayloadTooLarge signifies a payload larger than MaxMessagePayload.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrMalformedPayload signifies a payload that is structurally invalid
	// in a way not covered by the other errors, such as a non-canonical
	// variable length integer.
	ErrMalformedPayload = errors.New("malformed payload")
)

// MessageError describes an issue with a message.
// An example of some potential issues are messages from the wrong bitcoin
// network, invalid commands, mismatched checksums, and exceeding max payloads.
//
// This provides a mechanism for the caller to type assert the error to
// differentiate between general io errors such as io.EOF and issues that
// resulted from malformed messages.
type MessageError struct {
	Func        string // Function name
	Description string // Human readable description of the issue
	Err         error  // One of the sentinel errors above
}

// Error satisfies the error interface and prints human-readable errors.
func (e *MessageError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %s: %s", e.Func, e.Err, e.Description)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Description)
}

// Unwrap returns the sentinel error classifying this MessageError.
func (e *MessageError) Unwrap() error {
	return e.Err
}

// messageError creates an error for the given function, kind and description.
func messageError(f string, kind error, desc string) *MessageError {
	return &MessageError{Func: f, Description: desc, Err: kind}
}
