package ledger

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
)

// fakeClock is a manually advanced time source for expiry tests.
type fakeClock struct {
    mu  sync.Mutex
    now time.Time
}

func newFakeClock(start time.Time) *fakeClock { return &fakeClock{now: start} }

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.now = c.now.Add(d)
}

// newTestLedger wires a ledger over in-memory repositories with a short
// backoff so contention tests finish quickly.
func newTestLedger(t *testing.T, capacity int, clock func() time.Time) (*Ledger, *repository.MemoryEventRepo, *repository.MemoryTicketRepo, *model.Event) {
    t.Helper()
    events := repository.NewMemoryEventRepo()
    tickets := repository.NewMemoryTicketRepo()
    ev := &model.Event{
        ID:            "ev-1",
        Name:          "Go Conference",
        Date:          time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
        TotalCapacity: capacity,
        Available:     capacity,
        Version:       1,
        CreatedBy:     "org-1",
        CreatedAt:     time.Now().UTC(),
    }
    require.NoError(t, events.Create(context.Background(), ev))
    l := New(events, tickets, Options{RetryBase: time.Millisecond, Clock: clock})
    return l, events, tickets, ev
}

// checkInvariant asserts that available + pending units + confirmed
// units equals capacity, and that available stays within bounds.
func checkInvariant(t *testing.T, events *repository.MemoryEventRepo, tickets *repository.MemoryTicketRepo, eventID string) {
    t.Helper()
    ev, err := events.GetByID(context.Background(), eventID)
    require.NoError(t, err)
    all, err := tickets.ListByEvent(context.Background(), eventID)
    require.NoError(t, err)
    held := 0
    for _, tk := range all {
        if tk.Status == model.TicketPending || tk.Status == model.TicketConfirmed {
            held += tk.Quantity
        }
    }
    assert.Equal(t, ev.TotalCapacity, ev.Available+held, "available + held units must equal capacity")
    assert.GreaterOrEqual(t, ev.Available, 0)
    assert.LessOrEqual(t, ev.Available, ev.TotalCapacity)
}

func TestReserveDecrementsOnce(t *testing.T) {
    l, events, tickets, ev := newTestLedger(t, 10, nil)
    ctx := context.Background()

    tk, err := l.Reserve(ctx, ev.ID, "alice@example.com", 3)
    require.NoError(t, err)
    assert.Equal(t, model.TicketPending, tk.Status)
    assert.Equal(t, 3, tk.Quantity)
    assert.Equal(t, ev.ID, tk.EventID)
    assert.NotEmpty(t, tk.ID)

    got, err := events.GetByID(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 7, got.Available)
    checkInvariant(t, events, tickets, ev.ID)

    // Confirming must not move the counter again.
    require.NoError(t, l.Confirm(ctx, tk.ID, "pi_123"))
    got, err = events.GetByID(ctx, ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 7, got.Available)
    checkInvariant(t, events, tickets, ev.ID)
}

func TestReserveQuantityDefaultsToOne(t *testing.T) {
    l, events, _, ev := newTestLedger(t, 2, nil)
    tk, err := l.Reserve(context.Background(), ev.ID, "bob@example.com", 0)
    require.NoError(t, err)
    assert.Equal(t, 1, tk.Quantity)
    got, _ := events.GetByID(context.Background(), ev.ID)
    assert.Equal(t, 1, got.Available)
}

func TestReserveSoldOut(t *testing.T) {
    l, events, tickets, ev := newTestLedger(t, 1, nil)
    ctx := context.Background()

    _, err := l.Reserve(ctx, ev.ID, "a@example.com", 2)
    assert.ErrorIs(t, err, ErrSoldOut)

    _, err = l.Reserve(ctx, ev.ID, "a@example.com", 1)
    require.NoError(t, err)
    _, err = l.Reserve(ctx, ev.ID, "b@example.com", 1)
    assert.ErrorIs(t, err, ErrSoldOut)
    checkInvariant(t, events, tickets, ev.ID)
}

func TestReserveUnknownEvent(t *testing.T) {
    l, _, _, _ := newTestLedger(t, 1, nil)
    _, err := l.Reserve(context.Background(), "nope", "a@example.com", 1)
    assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
    const capacity = 5
    const callers = 20
    l, events, tickets, ev := newTestLedger(t, capacity, nil)

    var wg sync.WaitGroup
    results := make(chan error, callers)
    for i := 0; i < callers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := l.Reserve(context.Background(), ev.ID, "racer@example.com", 1)
            results <- err
        }()
    }
    wg.Wait()
    close(results)

    okCount, soldOut := 0, 0
    for err := range results {
        switch {
        case err == nil:
            okCount++
        case errors.Is(err, ErrSoldOut):
            soldOut++
        default:
            t.Fatalf("unexpected error from concurrent reserve: %v", err)
        }
    }
    assert.Equal(t, capacity, okCount, "exactly capacity reservations must succeed")
    assert.Equal(t, callers-capacity, soldOut)

    got, err := events.GetByID(context.Background(), ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 0, got.Available)
    checkInvariant(t, events, tickets, ev.ID)
}

func TestCapacityOneTwoBuyers(t *testing.T) {
    l, events, _, ev := newTestLedger(t, 1, nil)

    type outcome struct {
        ticket *model.Ticket
        err    error
    }
    results := make(chan outcome, 2)
    var wg sync.WaitGroup
    for i := 0; i < 2; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            tk, err := l.Reserve(context.Background(), ev.ID, "dueling@example.com", 1)
            results <- outcome{tk, err}
        }()
    }
    wg.Wait()
    close(results)

    var winners, losers int
    for r := range results {
        if r.err == nil {
            require.NotNil(t, r.ticket)
            winners++
        } else {
            assert.ErrorIs(t, r.err, ErrSoldOut)
            losers++
        }
    }
    assert.Equal(t, 1, winners)
    assert.Equal(t, 1, losers)
    got, _ := events.GetByID(context.Background(), ev.ID)
    assert.Equal(t, 0, got.Available)
}

func TestConfirmIsIdempotent(t *testing.T) {
    l, events, tickets, ev := newTestLedger(t, 3, nil)
    ctx := context.Background()

    tk, err := l.Reserve(ctx, ev.ID, "carol@example.com", 1)
    require.NoError(t, err)

    require.NoError(t, l.Confirm(ctx, tk.ID, "pi_abc"))
    require.NoError(t, l.Confirm(ctx, tk.ID, "pi_abc"), "duplicate callback with same ref must be a no-op")

    got, err := tickets.GetByID(ctx, tk.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TicketConfirmed, got.Status)
    assert.Equal(t, "pi_abc", got.PaymentRef)

    err = l.Confirm(ctx, tk.ID, "pi_other")
    assert.ErrorIs(t, err, ErrAlreadyConfirmed)
    checkInvariant(t, events, tickets, ev.ID)
}

func TestConfirmRejectsTerminalStates(t *testing.T) {
    l, _, _, ev := newTestLedger(t, 3, nil)
    ctx := context.Background()

    assert.ErrorIs(t, l.Confirm(ctx, "missing", "pi_x"), ErrTicketNotFound)

    tk, err := l.Reserve(ctx, ev.ID, "dave@example.com", 1)
    require.NoError(t, err)
    require.NoError(t, l.Cancel(ctx, tk.ID, "buyer backed out"))
    assert.ErrorIs(t, l.Confirm(ctx, tk.ID, "pi_late"), ErrInvalidTransition)
}

func TestCancelRestocks(t *testing.T) {
    l, events, tickets, ev := newTestLedger(t, 4, nil)
    ctx := context.Background()

    tk, err := l.Reserve(ctx, ev.ID, "erin@example.com", 2)
    require.NoError(t, err)
    got, _ := events.GetByID(ctx, ev.ID)
    require.Equal(t, 2, got.Available)

    require.NoError(t, l.Cancel(ctx, tk.ID, "payment failed"))
    got, _ = events.GetByID(ctx, ev.ID)
    assert.Equal(t, 4, got.Available, "cancel must return availability to its pre-reserve value")

    stored, err := tickets.GetByID(ctx, tk.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TicketCancelled, stored.Status)
    assert.Equal(t, "payment failed", stored.CancelReason)

    // A second cancel is a duplicate callback: rejected, no double restock.
    assert.ErrorIs(t, l.Cancel(ctx, tk.ID, "again"), ErrInvalidTransition)
    got, _ = events.GetByID(ctx, ev.ID)
    assert.Equal(t, 4, got.Available)
    checkInvariant(t, events, tickets, ev.ID)
}

func TestCancelConfirmedTicketRestocks(t *testing.T) {
    l, events, tickets, ev := newTestLedger(t, 2, nil)
    ctx := context.Background()

    tk, err := l.Reserve(ctx, ev.ID, "frank@example.com", 1)
    require.NoError(t, err)
    require.NoError(t, l.Confirm(ctx, tk.ID, "pi_refund_me"))

    require.NoError(t, l.Cancel(ctx, tk.ID, "refunded"))
    got, _ := events.GetByID(ctx, ev.ID)
    assert.Equal(t, 2, got.Available)
    checkInvariant(t, events, tickets, ev.ID)
}

func TestCancelUnknownTicket(t *testing.T) {
    l, _, _, _ := newTestLedger(t, 1, nil)
    assert.ErrorIs(t, l.Cancel(context.Background(), "missing", "whatever"), ErrTicketNotFound)
}

func TestExpireStalePending(t *testing.T) {
    clock := newFakeClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
    l, events, tickets, ev := newTestLedger(t, 5, clock.Now)
    ctx := context.Background()

    stale, err := l.Reserve(ctx, ev.ID, "ghost@example.com", 2)
    require.NoError(t, err)

    clock.Advance(20 * time.Minute)
    fresh, err := l.Reserve(ctx, ev.ID, "present@example.com", 1)
    require.NoError(t, err)

    got, _ := events.GetByID(ctx, ev.ID)
    require.Equal(t, 2, got.Available)

    n, err := l.ExpireStalePending(ctx, ev.ID, 15*time.Minute)
    require.NoError(t, err)
    assert.Equal(t, 1, n)

    staleStored, _ := tickets.GetByID(ctx, stale.ID)
    assert.Equal(t, model.TicketExpired, staleStored.Status)
    freshStored, _ := tickets.GetByID(ctx, fresh.ID)
    assert.Equal(t, model.TicketPending, freshStored.Status, "recent reservation must be untouched")

    got, _ = events.GetByID(ctx, ev.ID)
    assert.Equal(t, 4, got.Available)
    checkInvariant(t, events, tickets, ev.ID)

    // Sweeping again finds nothing and does not error.
    n, err = l.ExpireStalePending(ctx, ev.ID, 15*time.Minute)
    require.NoError(t, err)
    assert.Zero(t, n)
}

func TestExpireSkipsTicketsThatJustConfirmed(t *testing.T) {
    clock := newFakeClock(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
    l, events, tickets, ev := newTestLedger(t, 2, clock.Now)
    ctx := context.Background()

    tk, err := l.Reserve(ctx, ev.ID, "slow@example.com", 1)
    require.NoError(t, err)
    clock.Advance(time.Hour)

    // The provider callback lands between the sweep's listing and its
    // transition; the version check makes the sweep lose cleanly.
    require.NoError(t, l.Confirm(ctx, tk.ID, "pi_justintime"))

    n, err := l.ExpireStalePending(ctx, ev.ID, 15*time.Minute)
    require.NoError(t, err)
    assert.Zero(t, n)

    stored, _ := tickets.GetByID(ctx, tk.ID)
    assert.Equal(t, model.TicketConfirmed, stored.Status)
    checkInvariant(t, events, tickets, ev.ID)
}

// contendedEventRepo wraps the memory repo and fails every inventory
// write with a version mismatch, simulating a permanently lost race.
type contendedEventRepo struct {
    *repository.MemoryEventRepo
}

func (r *contendedEventRepo) UpdateInventory(context.Context, *model.Event, int64) error {
    return repository.ErrVersionMismatch
}

func TestReserveSurfacesConflictWhenRetriesExhaust(t *testing.T) {
    events := repository.NewMemoryEventRepo()
    tickets := repository.NewMemoryTicketRepo()
    ev := &model.Event{ID: "ev-hot", TotalCapacity: 100, Available: 100, Version: 1}
    require.NoError(t, events.Create(context.Background(), ev))

    l := New(&contendedEventRepo{events}, tickets, Options{MaxAttempts: 3, RetryBase: time.Microsecond})
    _, err := l.Reserve(context.Background(), ev.ID, "x@example.com", 1)
    assert.ErrorIs(t, err, ErrConflict)

    // Nothing committed: no ticket was created.
    all, err := tickets.ListByEvent(context.Background(), ev.ID)
    require.NoError(t, err)
    assert.Empty(t, all)
}

// brokenTicketRepo fails every create so the compensating restock path
// can be observed.
type brokenTicketRepo struct {
    *repository.MemoryTicketRepo
}

func (r *brokenTicketRepo) Create(context.Context, *model.Ticket) error {
    return errors.New("store unavailable")
}

func TestTicketCreateFailureRestocks(t *testing.T) {
    events := repository.NewMemoryEventRepo()
    ev := &model.Event{ID: "ev-2", TotalCapacity: 3, Available: 3, Version: 1}
    require.NoError(t, events.Create(context.Background(), ev))

    l := New(events, &brokenTicketRepo{repository.NewMemoryTicketRepo()}, Options{RetryBase: time.Millisecond})
    _, err := l.Reserve(context.Background(), ev.ID, "y@example.com", 2)
    require.Error(t, err)

    got, err := events.GetByID(context.Background(), ev.ID)
    require.NoError(t, err)
    assert.Equal(t, 3, got.Available, "failed reservation must leave the counter unchanged")
}

func TestReserveHonoursContextCancellation(t *testing.T) {
    events := repository.NewMemoryEventRepo()
    tickets := repository.NewMemoryTicketRepo()
    ev := &model.Event{ID: "ev-3", TotalCapacity: 1, Available: 1, Version: 1}
    require.NoError(t, events.Create(context.Background(), ev))

    l := New(&contendedEventRepo{events}, tickets, Options{MaxAttempts: 100, RetryBase: 50 * time.Millisecond})
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
    defer cancel()

    _, err := l.Reserve(ctx, ev.ID, "z@example.com", 1)
    assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// flakyEventRepo fails inventory writes while tripped, simulating a store
// outage that later recovers.
type flakyEventRepo struct {
    *repository.MemoryEventRepo
    mu     sync.Mutex
    broken bool
}

func (r *flakyEventRepo) trip(broken bool) {
    r.mu.Lock()
    r.broken = broken
    r.mu.Unlock()
}

func (r *flakyEventRepo) UpdateInventory(ctx context.Context, ev *model.Event, expectedVersion int64) error {
    r.mu.Lock()
    broken := r.broken
    r.mu.Unlock()
    if broken {
        return errors.New("write timeout")
    }
    return r.MemoryEventRepo.UpdateInventory(ctx, ev, expectedVersion)
}

func TestCancelResubmissionSettlesOwedRestock(t *testing.T) {
    events := repository.NewMemoryEventRepo()
    tickets := repository.NewMemoryTicketRepo()
    ev := &model.Event{
        ID:            "ev-1",
        Name:          "Go Conference",
        Date:          time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
        TotalCapacity: 5,
        Available:     5,
        Version:       1,
        CreatedBy:     "org-1",
        CreatedAt:     time.Now().UTC(),
    }
    require.NoError(t, events.Create(context.Background(), ev))
    flaky := &flakyEventRepo{MemoryEventRepo: events}
    l := New(flaky, tickets, Options{RetryBase: time.Millisecond})
    ctx := context.Background()

    tk, err := l.Reserve(ctx, ev.ID, "x@example.com", 2)
    require.NoError(t, err)

    flaky.trip(true)
    err = l.Cancel(ctx, tk.ID, "changed plans")
    require.Error(t, err, "cancel must surface the failed restock")

    stored, err := tickets.GetByID(ctx, tk.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TicketCancelled, stored.Status)
    assert.False(t, stored.Restocked, "units are still owed to the event")
    got, _ := events.GetByID(ctx, ev.ID)
    assert.Equal(t, 3, got.Available)

    // Once the store recovers, resubmitting the cancel settles the debt.
    flaky.trip(false)
    require.NoError(t, l.Cancel(ctx, tk.ID, "changed plans"))

    stored, _ = tickets.GetByID(ctx, tk.ID)
    assert.True(t, stored.Restocked)
    got, _ = events.GetByID(ctx, ev.ID)
    assert.Equal(t, 5, got.Available)
    checkInvariant(t, events, tickets, ev.ID)

    // Settled cancels behave like any other duplicate.
    assert.ErrorIs(t, l.Cancel(ctx, tk.ID, "again"), ErrInvalidTransition)
}

func TestSweepSettlesOwedRestock(t *testing.T) {
    events := repository.NewMemoryEventRepo()
    tickets := repository.NewMemoryTicketRepo()
    ev := &model.Event{
        ID:            "ev-1",
        Name:          "Go Conference",
        Date:          time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
        TotalCapacity: 5,
        Available:     5,
        Version:       1,
        CreatedBy:     "org-1",
        CreatedAt:     time.Now().UTC(),
    }
    require.NoError(t, events.Create(context.Background(), ev))
    flaky := &flakyEventRepo{MemoryEventRepo: events}
    l := New(flaky, tickets, Options{RetryBase: time.Millisecond})
    ctx := context.Background()

    tk, err := l.Reserve(ctx, ev.ID, "x@example.com", 2)
    require.NoError(t, err)

    flaky.trip(true)
    require.Error(t, l.Cancel(ctx, tk.ID, "changed plans"))
    flaky.trip(false)

    // The sweep reconciles the owed restock even though nothing expires.
    n, err := l.ExpireStalePending(ctx, ev.ID, 15*time.Minute)
    require.NoError(t, err)
    assert.Zero(t, n)

    stored, _ := tickets.GetByID(ctx, tk.ID)
    assert.True(t, stored.Restocked)
    got, _ := events.GetByID(ctx, ev.ID)
    assert.Equal(t, 5, got.Available)
    checkInvariant(t, events, tickets, ev.ID)
}
