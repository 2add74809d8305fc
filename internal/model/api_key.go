package model

import "time"

// APIKey allows third-party integrations to issue tickets on behalf of
// an organizer.  Only a bcrypt hash of the key's secret part is stored;
// the full key is shown to the organizer exactly once at creation.
//
// Fields:
//  ID          – public key identifier, embedded in the wire format.
//  OrganizerID – organizer the key acts for.
//  SecretHash  – bcrypt hash of the secret part of the key.
//  Label       – optional human-readable label.
//  CreatedAt   – creation timestamp.
type APIKey struct {
    ID          string    `bson:"_id" json:"id"`
    OrganizerID string    `bson:"organizer_id" json:"organizer_id"`
    SecretHash  []byte    `bson:"secret_hash" json:"-"`
    Label       string    `bson:"label,omitempty" json:"label,omitempty"`
    CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
