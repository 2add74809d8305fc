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

// PurchaseHandler implements the buyer-facing purchase flow.  A purchase
// always starts with a ledger reservation, which is the single point
// where availability is decremented.  Free events confirm immediately;
// paid events get a hosted checkout session and stay pending until the
// provider callback arrives (or the sweeper reclaims them).
type PurchaseHandler struct {
    Events   repository.EventRepo
    Tickets  repository.TicketRepo
    Ledger   *ledger.Ledger
    Payments payment.Provider // nil when no payment credentials are configured
}

// NewPurchaseHandler constructs a PurchaseHandler.  Payments may be nil,
// in which case only free events can be purchased.
func NewPurchaseHandler(events repository.EventRepo, tickets repository.TicketRepo, l *ledger.Ledger, payments payment.Provider) *PurchaseHandler {
    if events == nil || tickets == nil || l == nil {
        panic("nil dependency passed to NewPurchaseHandler")
    }
    return &PurchaseHandler{Events: events, Tickets: tickets, Ledger: l, Payments: payments}
}

// freePaymentRef builds the synthetic payment reference recorded on
// tickets that never went through the payment provider.
func freePaymentRef(ticketID string) string { return "free:" + ticketID }

// PurchaseTicket handles POST /v1/events/:id/tickets.  The request body
// carries the buyer's name, email and an optional quantity (default 1).
// Guests may purchase; no authentication is required.
func (h *PurchaseHandler) PurchaseTicket(c echo.Context) error {
    eventID := c.Param("id")
    var body struct {
        Name     string `json:"name"`
        Email    string `json:"email"`
        Quantity int    `json:"quantity"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    email := strings.TrimSpace(body.Email)
    if email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
    }
    if _, err := mail.ParseAddress(email); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
    }
    // Zero is allowed and treated as one ticket downstream.
    if body.Quantity < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must not be negative"})
    }

    ctx := c.Request().Context()
    ev, err := h.Events.GetByID(ctx, eventID)
    if errors.Is(err, repository.ErrNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if ev.PriceCents > 0 && h.Payments == nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "payments unavailable"})
    }

    ticket, err := h.Ledger.Reserve(ctx, eventID, email, body.Quantity)
    if err != nil {
        return reserveError(c, err)
    }
    if name := strings.TrimSpace(body.Name); name != "" {
        ticket.PurchaserName = name
        // Cosmetic field; losing a race here is harmless.
        _ = h.Tickets.Replace(ctx, ticket, ticket.Version)
    }

    // Free admission: confirm on the spot with a synthetic reference.
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
        // The reservation is already on the books; release it so the
        // units are not stranded until the sweep.
        if cerr := h.Ledger.Cancel(ctx, ticket.ID, "checkout session failed"); cerr != nil {
            c.Logger().Errorf("purchase: release after checkout failure: %v", cerr)
        }
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider error"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "ticket_id":    ticket.ID,
        "checkout_url": sess.URL,
        "session_id":   sess.ID,
    })
}

// MyTickets handles GET /v1/my/tickets and lists the authenticated
// user's purchases, newest first, matched by the email claim.
func (h *PurchaseHandler) MyTickets(c echo.Context) error {
    email, err := getEmail(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    tickets, err := h.Tickets.ListByPurchaser(c.Request().Context(), email)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if tickets == nil {
        tickets = []model.Ticket{}
    }
    return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}
