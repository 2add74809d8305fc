package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/payment"
    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/utils"
)

// OrganizerHandler bundles repositories for organizers to manage their
// events, inspect ticket sales and issue partner API keys.  All methods
// assume JWT authentication and role validation has already been
// performed by middleware.
type OrganizerHandler struct {
    Events  repository.EventRepo
    Tickets repository.TicketRepo
    Keys    repository.APIKeyRepo
}

// NewOrganizerHandler constructs an OrganizerHandler and panics if any
// dependency is nil.
func NewOrganizerHandler(events repository.EventRepo, tickets repository.TicketRepo, keys repository.APIKeyRepo) *OrganizerHandler {
    if events == nil || tickets == nil || keys == nil {
        panic("nil repository passed to NewOrganizerHandler")
    }
    return &OrganizerHandler{Events: events, Tickets: tickets, Keys: keys}
}

// CreateEvent handles POST /v1/events.  Capacity is fixed here for the
// lifetime of the event and seeds the available counter; the ledger is
// the only writer of that counter afterwards.  Prices are either zero
// (free admission) or at least the provider's minimum charge.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Name        string    `json:"name"`
        Description string    `json:"description"`
        Location    string    `json:"location"`
        Date        time.Time `json:"date"`
        Capacity    int       `json:"capacity"`
        PriceCents  int64     `json:"price_cents"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    name := strings.TrimSpace(body.Name)
    if name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    if body.Date.IsZero() {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
    }
    if body.Capacity < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
    }
    if body.PriceCents != 0 && body.PriceCents < payment.MinimumChargeCents {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be 0 or at least 50 cents"})
    }

    ev := &model.Event{
        ID:            uuid.NewString(),
        Name:          name,
        Description:   strings.TrimSpace(body.Description),
        Location:      strings.TrimSpace(body.Location),
        Date:          body.Date.UTC(),
        PriceCents:    body.PriceCents,
        TotalCapacity: body.Capacity,
        Available:     body.Capacity,
        Version:       1,
        CreatedBy:     organizerID,
        CreatedAt:     time.Now().UTC(),
    }
    if err := h.Events.Create(c.Request().Context(), ev); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create event"})
    }
    return c.JSON(http.StatusCreated, ev)
}

// ListMyEvents handles GET /v1/my/events and returns all events created
// by the authenticated organizer, date ascending.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    events, err := h.Events.ListByOrganizer(c.Request().Context(), organizerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if events == nil {
        events = []model.Event{}
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// ListEventTickets handles GET /v1/events/:id/tickets.  Only the event's
// organizer may see the purchaser details on its tickets.
func (h *OrganizerHandler) ListEventTickets(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ev, err := h.Events.GetByID(c.Request().Context(), c.Param("id"))
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if ev.CreatedBy != organizerID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    tickets, err := h.Tickets.ListByEvent(c.Request().Context(), ev.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if tickets == nil {
        tickets = []model.Ticket{}
    }
    return c.JSON(http.StatusOK, echo.Map{"event_id": ev.ID, "tickets": tickets})
}

// CreateAPIKey handles POST /v1/api-keys.  The raw key appears in this
// response and nowhere else; only its bcrypt hash is stored.
func (h *OrganizerHandler) CreateAPIKey(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        Label string `json:"label"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }

    gen, err := utils.NewAPIKey()
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not generate key"})
    }
    rec := &model.APIKey{
        ID:          gen.ID,
        OrganizerID: organizerID,
        SecretHash:  gen.SecretHash,
        Label:       strings.TrimSpace(body.Label),
        CreatedAt:   time.Now().UTC(),
    }
    if err := h.Keys.Create(c.Request().Context(), rec); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not store key"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "id":      rec.ID,
        "label":   rec.Label,
        "api_key": gen.Raw,
    })
}

// ListAPIKeys handles GET /v1/api-keys and returns the organizer's key
// metadata.  Secrets are not recoverable.
func (h *OrganizerHandler) ListAPIKeys(c echo.Context) error {
    organizerID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    keys, err := h.Keys.ListByOrganizer(c.Request().Context(), organizerID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if keys == nil {
        keys = []model.APIKey{}
    }
    return c.JSON(http.StatusOK, echo.Map{"api_keys": keys})
}
