package model

import "time"

// Ticket status values.  A ticket starts in PENDING and moves exactly
// once into one of the three remaining states; all of them are terminal.
// Tickets are never deleted so duplicate payment callbacks can be
// recognised long after the purchase finished.
const (
    TicketPending   = "PENDING"
    TicketConfirmed = "CONFIRMED"
    TicketCancelled = "CANCELLED"
    TicketExpired   = "EXPIRED"
)

// Ticket records a purchase of one or more units against an event's
// capacity.  The event's Available counter was already decremented by
// Quantity when the ticket was created, so confirming a ticket never
// touches the counter and cancelling or expiring it restocks Quantity.
//
// Fields:
//  ID            – opaque identifier (UUID string), assigned at reservation.
//  EventID       – owning event; immutable after creation.
//  Status        – one of the Ticket* constants above.
//  Quantity      – number of units reserved under this ticket.
//  PurchaserRef  – buyer's email address.
//  PurchaserName – optional display name supplied at purchase.
//  PaymentRef    – external payment reference, set on confirmation.
//  CancelReason  – why the ticket was cancelled, when it was.
//  Restocked     – whether a cancelled/expired ticket's units are back in
//                  the event's availability. False on a terminal ticket
//                  means the restock is still owed and will be retried.
//  ReservedAt    – when the reservation was made (UTC).
//  UpdatedAt     – last status change (UTC).
//  Version       – optimistic-concurrency token for status transitions.
type Ticket struct {
    ID            string    `bson:"_id" json:"id"`
    EventID       string    `bson:"event_id" json:"event_id"`
    Status        string    `bson:"status" json:"status"`
    Quantity      int       `bson:"quantity" json:"quantity"`
    PurchaserRef  string    `bson:"purchaser_ref" json:"purchaser_ref"`
    PurchaserName string    `bson:"purchaser_name,omitempty" json:"purchaser_name,omitempty"`
    PaymentRef    string    `bson:"payment_ref,omitempty" json:"payment_ref,omitempty"`
    CancelReason  string    `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
    Restocked     bool      `bson:"restocked,omitempty" json:"-"`
    ReservedAt    time.Time `bson:"reserved_at" json:"reserved_at"`
    UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
    Version       int64     `bson:"version" json:"-"`
}
