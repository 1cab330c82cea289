// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNoMatch is returned (possibly wrapped) by an extractor whose
	// expected pattern is absent or unparseable in the input. Dispatch treats
	// it as "no finding" and moves on.
	ErrNoMatch = errors.New("no match")

	// ErrDuplicateName rejects a registration whose public name is taken.
	ErrDuplicateName = errors.New("extractor name already registered")

	// ErrDuplicateIdentity rejects a second identity extractor for one input type.
	ErrDuplicateIdentity = errors.New("identity extractor already registered for input type")

	// ErrInvalidDescriptor rejects descriptors that are not exactly one of
	// extractor, producer or identity.
	ErrInvalidDescriptor = errors.New("invalid extractor descriptor")

	// ErrTimeout marks a dispatch that exceeded the per-item timeout.
	ErrTimeout = errors.New("dispatch timed out")
)

// NoMatch builds an ErrNoMatch with a formatted reason, for extractors that
// want the debug log to say what was missing.
func NoMatch(format string, args ...any) error {
	return errors.Wrapf(ErrNoMatch, format, args...)
}

// ExtractorError reports an extractor failure that aborted the dispatch of
// one input.
type ExtractorError struct {
	Extractor string
	Subject   string
	Err       error
}

func (e *ExtractorError) Error() string {
	return fmt.Sprintf("extractor %s on %s: %v", e.Extractor, e.Subject, e.Err)
}

func (e *ExtractorError) Unwrap() error { return e.Err }
