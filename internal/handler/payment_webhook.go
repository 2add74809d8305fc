package handler

import (
    "errors"
    "io"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/ledger"
    "github.com/iliyamo/event-ticketing/internal/payment"
    "github.com/iliyamo/event-ticketing/internal/repository"
)

// maxWebhookBody caps the webhook payload size before signature
// verification, matching the provider's documented limits.
const maxWebhookBody = int64(65536)

// WebhookHandler receives the payment provider's asynchronous callbacks.
// Deliveries are at-least-once and may arrive duplicated or out of
// order; the ledger's idempotent transitions absorb both, so the
// handler's job is translation and acknowledgement.  Returning a 5xx
// makes the provider redeliver, so only genuinely retryable failures do.
type WebhookHandler struct {
    Events   repository.EventRepo
    Tickets  repository.TicketRepo
    Ledger   *ledger.Ledger
    Payments payment.Provider
}

// NewWebhookHandler constructs a WebhookHandler. All dependencies must
// be non-nil.
func NewWebhookHandler(events repository.EventRepo, tickets repository.TicketRepo, l *ledger.Ledger, payments payment.Provider) *WebhookHandler {
    if events == nil || tickets == nil || l == nil || payments == nil {
        panic("nil dependency passed to NewWebhookHandler")
    }
    return &WebhookHandler{Events: events, Tickets: tickets, Ledger: l, Payments: payments}
}

// HandleCallback handles POST /v1/payments/webhook.
func (h *WebhookHandler) HandleCallback(c echo.Context) error {
    r := c.Request()
    r.Body = http.MaxBytesReader(c.Response(), r.Body, maxWebhookBody)
    payload, err := io.ReadAll(r.Body)
    if err != nil {
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not read body"})
    }

    event, err := h.Payments.VerifyCallback(payload, r.Header.Get("Stripe-Signature"))
    if err != nil {
        c.Logger().Warnf("webhook: verification failed: %v", err)
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid webhook"})
    }

    switch event.Type {
    case payment.OutcomeSucceeded:
        return h.confirm(c, event)
    case payment.OutcomeExpired:
        return h.cancel(c, event)
    default:
        // Not a checkout outcome; acknowledge and drop.
        return c.NoContent(http.StatusOK)
    }
}

func (h *WebhookHandler) confirm(c echo.Context, event *payment.CallbackEvent) error {
    if event.TicketID == "" {
        c.Logger().Warnf("webhook: %s without ticket metadata", event.Type)
        return c.NoContent(http.StatusOK)
    }
    ctx := c.Request().Context()
    err := h.Ledger.Confirm(ctx, event.TicketID, event.PaymentRef)
    switch {
    case err == nil:
        // Fetch the confirmed ticket and its event to build the
        // notification payload.
        t, terr := h.Tickets.GetByID(ctx, event.TicketID)
        if terr != nil {
            c.Logger().Errorf("webhook: load confirmed ticket %s: %v", event.TicketID, terr)
            return c.NoContent(http.StatusOK)
        }
        ev, eerr := h.Events.GetByID(ctx, t.EventID)
        if eerr != nil {
            c.Logger().Errorf("webhook: load event %s: %v", t.EventID, eerr)
            return c.NoContent(http.StatusOK)
        }
        notifyConfirmed(ctx, ev, t, event.PaymentRef)
        return c.NoContent(http.StatusOK)
    case errors.Is(err, ledger.ErrAlreadyConfirmed),
        errors.Is(err, ledger.ErrInvalidTransition),
        errors.Is(err, ledger.ErrTicketNotFound):
        // Duplicate or out-of-order delivery; log and acknowledge so
        // the provider stops retrying.
        c.Logger().Infof("webhook: ignoring %s for ticket %s: %v", event.Type, event.TicketID, err)
        return c.NoContent(http.StatusOK)
    default:
        // Transient store trouble: ask for redelivery.
        c.Logger().Errorf("webhook: confirm %s: %v", event.TicketID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirm failed"})
    }
}

func (h *WebhookHandler) cancel(c echo.Context, event *payment.CallbackEvent) error {
    if event.TicketID == "" {
        c.Logger().Warnf("webhook: %s without ticket metadata", event.Type)
        return c.NoContent(http.StatusOK)
    }
    err := h.Ledger.Cancel(c.Request().Context(), event.TicketID, "checkout expired")
    switch {
    case err == nil:
        return c.NoContent(http.StatusOK)
    case errors.Is(err, ledger.ErrInvalidTransition), errors.Is(err, ledger.ErrTicketNotFound):
        c.Logger().Infof("webhook: ignoring %s for ticket %s: %v", event.Type, event.TicketID, err)
        return c.NoContent(http.StatusOK)
    default:
        c.Logger().Errorf("webhook: cancel %s: %v", event.TicketID, err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
    }
}
