package handler // handler defines http handlers

import (
    "context"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/ledger"
    "github.com/iliyamo/event-ticketing/internal/model"
    "github.com/iliyamo/event-ticketing/internal/queue"
    queue_publisher "github.com/iliyamo/event-ticketing/internal/service"
)

// getUserID extracts the user_id claim that JWTAuth stored in the
// context. Identity-provider subjects are opaque strings.
func getUserID(c echo.Context) (string, error) {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s, nil
    }
    return "", errors.New("invalid user_id in context")
}

// getEmail extracts the email claim from the context.
func getEmail(c echo.Context) (string, error) {
    if s, ok := c.Get("email").(string); ok && s != "" {
        return s, nil
    }
    return "", errors.New("invalid email in context")
}

// reserveError translates ledger reservation failures into HTTP
// responses. Sold-out and retry-exhausted conditions are expected
// outcomes, not server defects, and get statuses a caller can act on.
func reserveError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, ledger.ErrEventNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    case errors.Is(err, ledger.ErrSoldOut):
        return c.JSON(http.StatusConflict, echo.Map{"error": "sold out"})
    case errors.Is(err, ledger.ErrConflict):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "inventory busy, please retry"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
}

// notifyConfirmed publishes a ticket.confirmed message for downstream
// consumers (notification delivery, analytics). Failures are logged and
// otherwise ignored: confirmation already committed and the purchase
// must not fail because the broker is down.
func notifyConfirmed(ctx context.Context, ev *model.Event, t *model.Ticket, paymentRef string) {
    msg := queue.TicketConfirmedEvent{
        TicketID:       t.ID,
        EventID:        ev.ID,
        EventName:      ev.Name,
        EventDate:      ev.Date.UTC().Format(time.RFC3339),
        Location:       ev.Location,
        PurchaserEmail: t.PurchaserRef,
        Quantity:       t.Quantity,
        AmountCents:    ev.PriceCents * int64(t.Quantity),
        PaymentRef:     paymentRef,
        ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
    }
    if err := queue_publisher.PublishTicketConfirmed(ctx, msg); err != nil {
        log.Printf("handler: publish ticket.confirmed for %s failed: %v", t.ID, err)
    }
}
