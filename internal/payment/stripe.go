// Package payment wraps the hosted payment provider behind a small
// interface so handlers can be exercised without network access.  The
// production implementation is Stripe Checkout: the buyer is redirected
// to a Stripe-hosted page and the outcome arrives asynchronously as a
// signed webhook.
package payment

import (
    "context"
    "encoding/json"
    "fmt"

    stripe "github.com/stripe/stripe-go/v72"
    "github.com/stripe/stripe-go/v72/checkout/session"
    "github.com/stripe/stripe-go/v72/webhook"
)

// MinimumChargeCents is the smallest amount the payment provider will
// collect.  Event prices must be zero (free) or at least this much.
const MinimumChargeCents = 50

// Webhook event types the service reacts to.  Everything else is
// acknowledged and ignored.
const (
    OutcomeSucceeded = "checkout.session.completed"
    OutcomeExpired   = "checkout.session.expired"
)

// CheckoutInput carries everything needed to open a hosted checkout for
// one ticket reservation.
type CheckoutInput struct {
    TicketID      string
    EventID       string
    EventName     string
    CustomerEmail string
    AmountCents   int64 // price per unit
    Quantity      int64
}

// CheckoutSession is the provider's handle for an opened checkout.
type CheckoutSession struct {
    ID  string
    URL string
}

// CallbackEvent is a verified provider notification, reduced to the
// fields the ledger cares about.  Deliveries are at-least-once and may
// be duplicated; consumers rely on the ledger's idempotence.
type CallbackEvent struct {
    Type       string
    TicketID   string
    EventID    string
    PaymentRef string
}

// Provider abstracts the hosted payments integration.
type Provider interface {
    CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
    // VerifyCallback authenticates a webhook payload and extracts the
    // callback event.  An invalid signature or malformed payload is an
    // error; an event type the service does not handle comes back with
    // its Type set so the caller can acknowledge and drop it.
    VerifyCallback(payload []byte, signature string) (*CallbackEvent, error)
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
    webhookSecret string
    baseURL       string
}

// NewStripeProvider configures the global Stripe client with the given
// API key and returns a provider that builds redirect URLs under
// baseURL.
func NewStripeProvider(secretKey, webhookSecret, baseURL string) *StripeProvider {
    stripe.Key = secretKey
    return &StripeProvider{webhookSecret: webhookSecret, baseURL: baseURL}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
    params := &stripe.CheckoutSessionParams{
        PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
        Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
        CustomerEmail:      stripe.String(in.CustomerEmail),
        LineItems: []*stripe.CheckoutSessionLineItemParams{
            {
                PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
                    Currency: stripe.String(string(stripe.CurrencyUSD)),
                    ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
                        Name:        stripe.String("Ticket for " + in.EventName),
                        Description: stripe.String(fmt.Sprintf("Ticket purchase for event %s", in.EventName)),
                    },
                    UnitAmount: stripe.Int64(in.AmountCents),
                },
                Quantity: stripe.Int64(in.Quantity),
            },
        },
        SuccessURL: stripe.String(p.baseURL + "/tickets/" + in.TicketID + "/success"),
        CancelURL:  stripe.String(p.baseURL + "/events/" + in.EventID),
    }
    params.Context = ctx
    params.AddMetadata("ticket_id", in.TicketID)
    params.AddMetadata("event_id", in.EventID)

    s, err := session.New(params)
    if err != nil {
        return nil, err
    }
    return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) VerifyCallback(payload []byte, signature string) (*CallbackEvent, error) {
    event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
    if err != nil {
        return nil, fmt.Errorf("webhook signature verification failed: %w", err)
    }
    out := &CallbackEvent{Type: event.Type}
    if out.Type != OutcomeSucceeded && out.Type != OutcomeExpired {
        return out, nil
    }

    var s stripe.CheckoutSession
    if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
        return nil, fmt.Errorf("decode checkout session: %w", err)
    }
    out.TicketID = s.Metadata["ticket_id"]
    out.EventID = s.Metadata["event_id"]
    out.PaymentRef = s.ID
    if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
        out.PaymentRef = s.PaymentIntent.ID
    }
    return out, nil
}
