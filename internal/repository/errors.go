// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// ledger and handlers to distinguish between different failure
// scenarios. ErrNotFound covers any missing document, while
// ErrVersionMismatch signals that a conditional write observed a stale
// version token and lost the race to a concurrent writer.
package repository

import "errors"

// ErrNotFound is returned when a requested document does not exist.
// Handlers should translate this into an HTTP 404 response; the ledger
// maps it onto its own event/ticket-specific sentinels.
var ErrNotFound = errors.New("not found")

// ErrVersionMismatch is returned when a conditional write fails because
// the stored version token no longer matches the expected value. The
// caller is expected to re-read the document and retry the whole
// operation; the ledger does this with bounded exponential backoff.
var ErrVersionMismatch = errors.New("version mismatch")

// ErrDuplicateKey is returned when a create collides with an existing
// document ID. With UUID keys this indicates a programming error rather
// than expected contention.
var ErrDuplicateKey = errors.New("duplicate key")
