// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketConfirmedEvent is published when a ticket purchase is confirmed,
// whether through the free path, the payment webhook or the partner API.
// It carries enough information for downstream consumers (notification
// delivery, pass generation, analytics) to act without querying the
// primary database.
type TicketConfirmedEvent struct {
    TicketID       string `json:"ticket_id"`
    EventID        string `json:"event_id"`
    EventName      string `json:"event_name"`
    EventDate      string `json:"event_date"`
    Location       string `json:"location,omitempty"`
    PurchaserEmail string `json:"purchaser_email"`
    Quantity       int    `json:"quantity"`
    AmountCents    int64  `json:"amount_cents"`
    PaymentRef     string `json:"payment_ref"`
    ConfirmedAt    string `json:"confirmed_at"`
}
