// Package errors provides standardized error handling patterns for airstreams components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// This classification lets components make informed decisions about retries,
// graceful degradation, and failure recovery without hardcoded error string
// matching. It integrates with Go's standard error handling, supporting
// errors.Is(), errors.As(), and wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	if !linkUp {
//	    return errors.ErrNoConnection
//	}
//
// Wrap errors with context for debugging:
//
//	if err := dec.Decode(frame); err != nil {
//	    return errors.Wrap(err, "MAVLinkProcessor", "Decode", "frame decoding")
//	}
//
// Check classification for retry logic:
//
//	if err := operation(); err != nil {
//	    if errors.IsTransient(err) {
//	        // Retry with backoff (see pkg/retry)
//	    } else if errors.IsFatal(err) {
//	        // Stop processing, escalate to operator
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
package errors
