package handler

import (
    "errors"
    "net/http"
    "net/mail"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/ledger"
    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/payment"
    "github.com/iliyamo/event-ticketing/internal/repository"
)

// PartnerHandler implements the third-party integration surface.  The
// APIKeyAuth middleware has already resolved the key to an organizer;
// callers may only issue tickets against that organizer's own events.
type PartnerHandler struct {
    Events   repository.EventRepo
    Tickets  repository.TicketRepo
    Ledger   *ledger.Ledger
    Payments payment.Provider // nil when no payment credentials are configured
}

// NewPartnerHandler constructs a PartnerHandler. Payments may be nil.
func NewPartnerHandler(events repository.EventRepo, tickets repository.TicketRepo, l *ledger.Ledger, payments payment.Provider) *PartnerHandler {
    if events == nil || tickets == nil || l == nil {
        panic("nil dependency passed to NewPartnerHandler")
    }
    return &PartnerHandler{Events: events, Tickets: tickets, Ledger: l, Payments: payments}
}

// IssueTicket handles POST /v1/partner/tickets.  The flow mirrors the
// buyer-facing purchase: reserve, then either confirm on the spot for
// free events or hand back a checkout URL for paid ones.
func (h *PartnerHandler) IssueTicket(c echo.Context) error {
    organizerID, ok := c.Get("organizer_id").(string)
    if !ok || organizerID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        EventID       string `json:"event_id"`
        Quantity      int    `json:"quantity"`
        CustomerEmail string `json:"customer_email"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.EventID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
    }
    email := strings.TrimSpace(body.CustomerEmail)
    if email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_email is required"})
    }
    if _, err := mail.ParseAddress(email); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer_email"})
    }

    ctx := c.Request().Context()
    ev, err := h.Events.GetByID(ctx, body.EventID)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if ev.CreatedBy != organizerID {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "event does not belong to this api key"})
    }
    if ev.PriceCents > 0 && h.Payments == nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payments unavailable"})
    }

    ticket, err := h.Ledger.Reserve(ctx, ev.ID, email, body.Quantity)
    if err != nil {
        return reserveError(c, err)
    }

    if ev.PriceCents == 0 {
        if err := h.Ledger.Confirm(ctx, ticket.ID, freePaymentRef(ticket.ID)); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not confirm ticket"})
        }
        ticket.Status = model.TicketConfirmed
        ticket.PaymentRef = freePaymentRef(ticket.ID)
        notifyConfirmed(ctx, ev, ticket, ticket.PaymentRef)
        return c.JSON(http.StatusCreated, echo.Map{"ticket": ticket})
    }

    sess, err := h.Payments.CreateCheckoutSession(ctx, payment.CheckoutInput{
        TicketID:      ticket.ID,
        EventID:       ev.ID,
        EventName:     ev.Name,
        CustomerEmail: email,
        AmountCents:   ev.PriceCents,
        Quantity:      int64(ticket.Quantity),
    })
    if err != nil {
        if cerr := h.Ledger.Cancel(ctx, ticket.ID, "checkout session failed"); cerr != nil {
            c.Logger().Errorf("partner: release after checkout failure: %v", cerr)
        }
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider error"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "ticket_id":    ticket.ID,
        "checkout_url": sess.URL,
        "session_id":   sess.ID,
    })
}
