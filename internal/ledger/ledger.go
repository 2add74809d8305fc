package ledger

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
)

// Defaults applied by New when the corresponding Options field is zero.
const (
    defaultMaxAttempts = 5
    defaultRetryBase   = 10 * time.Millisecond
    defaultOpTimeout   = 5 * time.Second
)

// Options tunes the retry behaviour of a Ledger.  The zero value gives
// sensible production defaults; tests shrink the backoff and inject a
// fixed clock.
type Options struct {
    MaxAttempts int                // conditional-write attempts before ErrConflict
    RetryBase   time.Duration      // initial backoff, doubled per attempt
    OpTimeout   time.Duration      // overall deadline applied when ctx has none
    Clock       func() time.Time   // timestamp source, defaults to time.Now
}

// Ledger is the single writer of every event's Available counter and of
// every ticket's status.  Reserve decrements availability exactly once,
// Confirm is purely informational, and Cancel/expiry restock; no other
// code path may touch those fields.
type Ledger struct {
    events      repository.EventRepo
    tickets     repository.TicketRepo
    maxAttempts int
    retryBase   time.Duration
    opTimeout   time.Duration
    now         func() time.Time
}

// New constructs a Ledger over the given repositories.  Both must be
// non-nil; zero Options fields fall back to the package defaults.
func New(events repository.EventRepo, tickets repository.TicketRepo, opts Options) *Ledger {
    if events == nil || tickets == nil {
        panic("nil repository passed to ledger.New")
    }
    l := &Ledger{
        events:      events,
        tickets:     tickets,
        maxAttempts: opts.MaxAttempts,
        retryBase:   opts.RetryBase,
        opTimeout:   opts.OpTimeout,
        now:         opts.Clock,
    }
    if l.maxAttempts <= 0 {
        l.maxAttempts = defaultMaxAttempts
    }
    if l.retryBase <= 0 {
        l.retryBase = defaultRetryBase
    }
    if l.opTimeout <= 0 {
        l.opTimeout = defaultOpTimeout
    }
    if l.now == nil {
        l.now = time.Now
    }
    return l
}

// withDeadline bounds the operation's latency when the caller did not.
func (l *Ledger) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
    if _, ok := ctx.Deadline(); ok {
        return ctx, func() {}
    }
    return context.WithTimeout(ctx, l.opTimeout)
}

// retry runs op until it succeeds, fails with something other than a
// version mismatch, or the attempt budget is spent.  Between attempts it
// sleeps with doubling backoff, aborting early if the context ends.  A
// spent budget surfaces as ErrConflict; the operation had no effect.
func (l *Ledger) retry(ctx context.Context, op func() error) error {
    backoff := l.retryBase
    for attempt := 1; ; attempt++ {
        err := op()
        if !errors.Is(err, repository.ErrVersionMismatch) {
            return err
        }
        if attempt >= l.maxAttempts {
            return ErrConflict
        }
        timer := time.NewTimer(backoff)
        select {
        case <-ctx.Done():
            timer.Stop()
            return ctx.Err()
        case <-timer.C:
        }
        backoff *= 2
    }
}

// Reserve atomically takes quantity units from the event's availability
// and creates a single pending ticket covering them.  The
// check-and-decrement is one conditional write against the version read
// in the same attempt, so concurrent reservations can never drive the
// counter negative.  Returns ErrSoldOut when availability is short,
// ErrEventNotFound for an unknown event and ErrConflict when the retry
// budget is exhausted by contention.
func (l *Ledger) Reserve(ctx context.Context, eventID, purchaserRef string, quantity int) (*model.Ticket, error) {
    if quantity < 1 {
        quantity = 1
    }
    ctx, cancel := l.withDeadline(ctx)
    defer cancel()

    err := l.retry(ctx, func() error {
        ev, err := l.events.GetByID(ctx, eventID)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrEventNotFound
        }
        if err != nil {
            return err
        }
        if ev.Available < quantity {
            return ErrSoldOut
        }
        ev.Available -= quantity
        return l.events.UpdateInventory(ctx, ev, ev.Version)
    })
    if err != nil {
        return nil, err
    }

    now := l.now().UTC()
    t := &model.Ticket{
        ID:           uuid.NewString(),
        EventID:      eventID,
        Status:       model.TicketPending,
        Quantity:     quantity,
        PurchaserRef: purchaserRef,
        ReservedAt:   now,
        UpdatedAt:    now,
        Version:      1,
    }
    if err := l.tickets.Create(ctx, t); err != nil {
        // The decrement committed but the ticket did not: restock so the
        // counter stays truthful, then surface the store failure.
        if rerr := l.restock(ctx, eventID, quantity); rerr != nil {
            log.Printf("ledger: compensating restock failed for event %s: %v", eventID, rerr)
        }
        return nil, err
    }
    return t, nil
}

// Confirm marks a pending ticket as confirmed and records the payment
// reference.  Availability is untouched: the units were taken at
// reservation time.  Confirming an already-confirmed ticket with the
// same reference is a no-op, so duplicate provider callbacks are safe;
// a different reference returns ErrAlreadyConfirmed.
func (l *Ledger) Confirm(ctx context.Context, ticketID, paymentRef string) error {
    ctx, cancel := l.withDeadline(ctx)
    defer cancel()

    return l.retry(ctx, func() error {
        t, err := l.tickets.GetByID(ctx, ticketID)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrTicketNotFound
        }
        if err != nil {
            return err
        }
        switch t.Status {
        case model.TicketConfirmed:
            if t.PaymentRef == paymentRef {
                return nil
            }
            return ErrAlreadyConfirmed
        case model.TicketCancelled, model.TicketExpired:
            return ErrInvalidTransition
        }
        t.Status = model.TicketConfirmed
        t.PaymentRef = paymentRef
        t.UpdatedAt = l.now().UTC()
        return l.tickets.Replace(ctx, t, t.Version)
    })
}

// Cancel releases a pending or confirmed ticket and restocks its units.
// The ticket transition is the conditional write that decides the race,
// so two concurrent cancels restock exactly once.  When an earlier
// cancel or expiry committed the transition but the restock failed, the
// ticket is still marked restock-owed; resubmitting Cancel settles that
// debt instead of rejecting the call, so the units are never stranded.
func (l *Ledger) Cancel(ctx context.Context, ticketID, reason string) error {
    ctx, cancel := l.withDeadline(ctx)
    defer cancel()

    var ticket *model.Ticket
    err := l.retry(ctx, func() error {
        t, err := l.tickets.GetByID(ctx, ticketID)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrTicketNotFound
        }
        if err != nil {
            return err
        }
        if t.Status == model.TicketCancelled || t.Status == model.TicketExpired {
            if t.Restocked {
                return ErrInvalidTransition
            }
            // Transition already committed, restock still owed.
            ticket = t
            return nil
        }
        t.Status = model.TicketCancelled
        t.CancelReason = reason
        t.UpdatedAt = l.now().UTC()
        if err := l.tickets.Replace(ctx, t, t.Version); err != nil {
            return err
        }
        ticket = t
        return nil
    })
    if err != nil {
        return err
    }
    return l.finishRestock(ctx, ticket)
}

// finishRestock returns a terminal ticket's units to its event and then
// marks the ticket restocked.  On failure the ticket keeps its
// restock-owed state, so the next Cancel resubmission or sweep retries;
// the counter therefore recovers instead of losing units for good.
func (l *Ledger) finishRestock(ctx context.Context, t *model.Ticket) error {
    if err := l.restock(ctx, t.EventID, t.Quantity); err != nil {
        log.Printf("ledger: restock for ticket %s deferred: %v", t.ID, err)
        return err
    }
    return l.retry(ctx, func() error {
        cur, err := l.tickets.GetByID(ctx, t.ID)
        if err != nil {
            return err
        }
        if cur.Restocked {
            return nil
        }
        cur.Restocked = true
        cur.UpdatedAt = l.now().UTC()
        return l.tickets.Replace(ctx, cur, cur.Version)
    })
}

// ExpireStalePending sweeps the event's pending tickets reserved before
// now-olderThan, marking each expired and restocking its units.  A
// ticket whose version moved between the listing and the transition lost
// a race to a confirm or cancel and is skipped.  The sweep first settles
// any restocks still owed by earlier cancels or expiries whose restock
// failed, so the availability counter reconverges on the ticket set.
// Returns the number of tickets expired; an empty sweep is not an error.
func (l *Ledger) ExpireStalePending(ctx context.Context, eventID string, olderThan time.Duration) (int, error) {
    ctx, cancel := l.withDeadline(ctx)
    defer cancel()

    owed, err := l.tickets.ListUnrestocked(ctx, eventID)
    if err != nil {
        return 0, err
    }
    for i := range owed {
        if err := l.finishRestock(ctx, &owed[i]); err != nil {
            return 0, err
        }
    }

    cutoff := l.now().UTC().Add(-olderThan)
    stale, err := l.tickets.ListPendingBefore(ctx, eventID, cutoff)
    if err != nil {
        return 0, err
    }
    expired := 0
    for i := range stale {
        t := stale[i]
        t.Status = model.TicketExpired
        t.UpdatedAt = l.now().UTC()
        err := l.tickets.Replace(ctx, &t, t.Version)
        if errors.Is(err, repository.ErrVersionMismatch) || errors.Is(err, repository.ErrNotFound) {
            continue
        }
        if err != nil {
            return expired, err
        }
        if err := l.finishRestock(ctx, &t); err != nil {
            return expired, err
        }
        expired++
    }
    return expired, nil
}

// restock returns quantity units to the event's availability with the
// same conditional-retry discipline as Reserve.  The counter is clamped
// at capacity so a reconciling double release can never report more
// tickets than exist.
func (l *Ledger) restock(ctx context.Context, eventID string, quantity int) error {
    return l.retry(ctx, func() error {
        ev, err := l.events.GetByID(ctx, eventID)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrEventNotFound
        }
        if err != nil {
            return err
        }
        ev.Available += quantity
        if ev.Available > ev.TotalCapacity {
            ev.Available = ev.TotalCapacity
        }
        return l.events.UpdateInventory(ctx, ev, ev.Version)
    })
}
