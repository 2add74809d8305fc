package model

import "time"

// Event is a ticketed occasion with a fixed capacity and price.  The
// Available counter together with Version forms the inventory record
// that the ledger mutates through conditional writes: Available is only
// ever changed by a write that also bumps Version and carries the
// previously observed Version as its condition.
//
// Fields:
//  ID            – opaque identifier (UUID string).
//  Name          – display name of the event.
//  Description   – optional free-form description.
//  Location      – optional venue description.
//  Date          – when the event takes place (UTC).
//  PriceCents    – ticket price in cents; 0 means free admission.
//  TotalCapacity – number of tickets that can ever be sold; immutable.
//  Available     – tickets currently available; 0 <= Available <= TotalCapacity.
//  Version       – optimistic-concurrency token, incremented on every
//                  successful inventory mutation.
//  CreatedBy     – identifier of the organizer who owns the event.
//  CreatedAt     – creation timestamp.
type Event struct {
    ID            string    `bson:"_id" json:"id"`
    Name          string    `bson:"name" json:"name"`
    Description   string    `bson:"description,omitempty" json:"description,omitempty"`
    Location      string    `bson:"location,omitempty" json:"location,omitempty"`
    Date          time.Time `bson:"date" json:"date"`
    PriceCents    int64     `bson:"price_cents" json:"price_cents"`
    TotalCapacity int       `bson:"total_capacity" json:"total_capacity"`
    Available     int       `bson:"available" json:"available"`
    Version       int64     `bson:"version" json:"-"`
    CreatedBy     string    `bson:"created_by" json:"created_by"`
    CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
