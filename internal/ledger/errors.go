// Package ledger owns the authoritative available-ticket count of every
// event and the status of every ticket issued against it. All inventory
// mutations go through version-checked conditional writes with bounded
// retry, which linearizes concurrent reservations, cancellations and
// expiries per event without holding any lock.
package ledger

import "errors"

// ErrEventNotFound is returned when the referenced event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrTicketNotFound is returned when the referenced ticket does not exist.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrSoldOut is returned by Reserve when the event does not have enough
// available tickets at the time of the atomic attempt. Expected under
// load; callers should surface it, not log it as a defect.
var ErrSoldOut = errors.New("sold out")

// ErrInvalidTransition is returned when a confirm or cancel targets a
// ticket that is already cancelled or expired. This typically means a
// late or out-of-order payment callback.
var ErrInvalidTransition = errors.New("invalid ticket transition")

// ErrAlreadyConfirmed is returned when a confirm carries a payment
// reference different from the one already recorded on a confirmed
// ticket. A confirm with the same reference is an idempotent no-op.
var ErrAlreadyConfirmed = errors.New("ticket already confirmed")

// ErrConflict is returned when the bounded retry budget for conditional
// writes is exhausted. The operation had no effect and may be resubmitted.
var ErrConflict = errors.New("conflict: retries exhausted")
