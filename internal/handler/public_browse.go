package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/repository"
)

// PublicHandler exposes unauthenticated browse endpoints: the upcoming
// event listing, event details and ticket status lookups.  Responses
// contain only data a guest may see.
type PublicHandler struct {
    Events  repository.EventRepo
    Tickets repository.TicketRepo
}

// NewPublicHandler constructs a PublicHandler. All dependencies must be
// non-nil.
func NewPublicHandler(events repository.EventRepo, tickets repository.TicketRepo) *PublicHandler {
    if events == nil || tickets == nil {
        panic("nil repository passed to NewPublicHandler")
    }
    return &PublicHandler{Events: events, Tickets: tickets}
}

// ListEvents handles GET /v1/events and returns all upcoming events
// ordered by date ascending. The route sits behind the response cache
// since it is the hottest read in the system.
func (h *PublicHandler) ListEvents(c echo.Context) error {
    events, err := h.Events.ListUpcoming(c.Request().Context(), time.Now().UTC())
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if events == nil {
        events = []model.Event{}
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// GetEvent handles GET /v1/events/:id and returns one event, including
// its live availability so buyers see how many tickets remain.
func (h *PublicHandler) GetEvent(c echo.Context) error {
    ev, err := h.Events.GetByID(c.Request().Context(), c.Param("id"))
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, ev)
}

// GetTicket handles GET /v1/tickets/:id. The post-checkout success page
// polls it to show whether the payment callback has confirmed the
// ticket yet. Ticket IDs are unguessable UUIDs, which is the same
// access model the checkout redirect URL already relies on.
func (h *PublicHandler) GetTicket(c echo.Context) error {
    t, err := h.Tickets.GetByID(c.Request().Context(), c.Param("id"))
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, t)
}
