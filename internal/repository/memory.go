package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// In-memory repositories backing the STORE_DRIVER=memory mode.  They
// implement the same sentinel semantics as the Mongo repositories,
// including version-conditional writes, so the ledger behaves
// identically against either driver.  All methods copy documents in and
// out so callers never share memory with the store.

// MemoryEventRepo keeps events in a mutex-guarded map.
type MemoryEventRepo struct {
    mu     sync.Mutex
    events map[string]model.Event
}

// NewMemoryEventRepo returns an empty in-memory EventRepo.
func NewMemoryEventRepo() *MemoryEventRepo {
    return &MemoryEventRepo{events: make(map[string]model.Event)}
}

func (r *MemoryEventRepo) Create(_ context.Context, ev *model.Event) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.events[ev.ID]; ok {
        return ErrDuplicateKey
    }
    r.events[ev.ID] = *ev
    return nil
}

func (r *MemoryEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    ev, ok := r.events[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &ev, nil
}

func (r *MemoryEventRepo) UpdateInventory(_ context.Context, ev *model.Event, expectedVersion int64) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    stored, ok := r.events[ev.ID]
    if !ok {
        return ErrNotFound
    }
    if stored.Version != expectedVersion {
        return ErrVersionMismatch
    }
    stored.Available = ev.Available
    stored.Version = expectedVersion + 1
    r.events[ev.ID] = stored
    ev.Version = stored.Version
    return nil
}

func (r *MemoryEventRepo) ListUpcoming(_ context.Context, now time.Time) ([]model.Event, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    var events []model.Event
    for _, ev := range r.events {
        if !ev.Date.Before(now) {
            events = append(events, ev)
        }
    }
    sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
    return events, nil
}

func (r *MemoryEventRepo) ListByOrganizer(_ context.Context, organizerID string) ([]model.Event, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    var events []model.Event
    for _, ev := range r.events {
        if ev.CreatedBy == organizerID {
            events = append(events, ev)
        }
    }
    sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
    return events, nil
}

func (r *MemoryEventRepo) ListIDs(_ context.Context) ([]string, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    ids := make([]string, 0, len(r.events))
    for id := range r.events {
        ids = append(ids, id)
    }
    sort.Strings(ids)
    return ids, nil
}

// MemoryTicketRepo keeps tickets in a mutex-guarded map.
type MemoryTicketRepo struct {
    mu      sync.Mutex
    tickets map[string]model.Ticket
}

// NewMemoryTicketRepo returns an empty in-memory TicketRepo.
func NewMemoryTicketRepo() *MemoryTicketRepo {
    return &MemoryTicketRepo{tickets: make(map[string]model.Ticket)}
}

func (r *MemoryTicketRepo) Create(_ context.Context, t *model.Ticket) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.tickets[t.ID]; ok {
        return ErrDuplicateKey
    }
    r.tickets[t.ID] = *t
    return nil
}

func (r *MemoryTicketRepo) GetByID(_ context.Context, id string) (*model.Ticket, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    t, ok := r.tickets[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &t, nil
}

func (r *MemoryTicketRepo) Replace(_ context.Context, t *model.Ticket, expectedVersion int64) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    stored, ok := r.tickets[t.ID]
    if !ok {
        return ErrNotFound
    }
    if stored.Version != expectedVersion {
        return ErrVersionMismatch
    }
    next := *t
    next.Version = expectedVersion + 1
    r.tickets[t.ID] = next
    t.Version = next.Version
    return nil
}

func (r *MemoryTicketRepo) ListByEvent(_ context.Context, eventID string) ([]model.Ticket, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    var tickets []model.Ticket
    for _, t := range r.tickets {
        if t.EventID == eventID {
            tickets = append(tickets, t)
        }
    }
    sort.Slice(tickets, func(i, j int) bool { return tickets[i].ReservedAt.Before(tickets[j].ReservedAt) })
    return tickets, nil
}

func (r *MemoryTicketRepo) ListPendingBefore(_ context.Context, eventID string, cutoff time.Time) ([]model.Ticket, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    var tickets []model.Ticket
    for _, t := range r.tickets {
        if t.EventID == eventID && t.Status == model.TicketPending && t.ReservedAt.Before(cutoff) {
            tickets = append(tickets, t)
        }
    }
    sort.Slice(tickets, func(i, j int) bool { return tickets[i].ReservedAt.Before(tickets[j].ReservedAt) })
    return tickets, nil
}

func (r *MemoryTicketRepo) ListUnrestocked(_ context.Context, eventID string) ([]model.Ticket, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    var tickets []model.Ticket
    for _, t := range r.tickets {
        terminal := t.Status == model.TicketCancelled || t.Status == model.TicketExpired
        if t.EventID == eventID && terminal && !t.Restocked {
            tickets = append(tickets, t)
        }
    }
    sort.Slice(tickets, func(i, j int) bool { return tickets[i].ReservedAt.Before(tickets[j].ReservedAt) })
    return tickets, nil
}

func (r *MemoryTicketRepo) ListByPurchaser(_ context.Context, purchaserRef string) ([]model.Ticket, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    var tickets []model.Ticket
    for _, t := range r.tickets {
        if t.PurchaserRef == purchaserRef {
            tickets = append(tickets, t)
        }
    }
    sort.Slice(tickets, func(i, j int) bool { return tickets[i].ReservedAt.After(tickets[j].ReservedAt) })
    return tickets, nil
}

// MemoryAPIKeyRepo keeps API keys in a mutex-guarded map.
type MemoryAPIKeyRepo struct {
    mu   sync.Mutex
    keys map[string]model.APIKey
}

// NewMemoryAPIKeyRepo returns an empty in-memory APIKeyRepo.
func NewMemoryAPIKeyRepo() *MemoryAPIKeyRepo {
    return &MemoryAPIKeyRepo{keys: make(map[string]model.APIKey)}
}

func (r *MemoryAPIKeyRepo) Create(_ context.Context, k *model.APIKey) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.keys[k.ID]; ok {
        return ErrDuplicateKey
    }
    r.keys[k.ID] = *k
    return nil
}

func (r *MemoryAPIKeyRepo) GetByID(_ context.Context, id string) (*model.APIKey, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    k, ok := r.keys[id]
    if !ok {
        return nil, ErrNotFound
    }
    return &k, nil
}

func (r *MemoryAPIKeyRepo) ListByOrganizer(_ context.Context, organizerID string) ([]model.APIKey, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    var keys []model.APIKey
    for _, k := range r.keys {
        if k.OrganizerID == organizerID {
            keys = append(keys, k)
        }
    }
    sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.Before(keys[j].CreatedAt) })
    return keys, nil
}
