package utils // package utils provides helper functions for key and token creation

import (
    "crypto/rand"  // secure random number generation
    "encoding/hex" // hex encoding of random bytes
    "strings"      // wire-format splitting

    "golang.org/x/crypto/bcrypt" // bcrypt hashing of API key secrets
)

// apiKeyPrefix identifies keys issued by this service in logs and
// support requests without revealing anything secret.
const apiKeyPrefix = "ek"

// GeneratedAPIKey is the result of NewAPIKey.  Raw is the full key in
// wire format ("ek_<id>.<secret>") and is shown to the organizer exactly
// once; only ID and SecretHash are persisted.
type GeneratedAPIKey struct {
    ID         string // public key identifier
    Raw        string // full key returned to the organizer
    SecretHash []byte // bcrypt hash of the secret part
}

// NewAPIKey generates a partner API key: an 8-byte hex identifier plus a
// 24-byte hex secret, bcrypt-hashed for storage.  The raw key is never
// recoverable afterwards.
func NewAPIKey() (GeneratedAPIKey, error) {
    id, err := randomHex(8)
    if err != nil {
        return GeneratedAPIKey{}, err
    }
    secret, err := randomHex(24)
    if err != nil {
        return GeneratedAPIKey{}, err
    }
    hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
    if err != nil {
        return GeneratedAPIKey{}, err
    }
    return GeneratedAPIKey{
        ID:         id,
        Raw:        apiKeyPrefix + "_" + id + "." + secret,
        SecretHash: hash,
    }, nil
}

// ParseAPIKey splits a raw key back into its identifier and secret.  It
// returns ok=false for anything that does not match the wire format; the
// caller must still compare the secret against the stored hash.
func ParseAPIKey(raw string) (id, secret string, ok bool) {
    rest, found := strings.CutPrefix(raw, apiKeyPrefix+"_")
    if !found {
        return "", "", false
    }
    id, secret, found = strings.Cut(rest, ".")
    if !found || id == "" || secret == "" {
        return "", "", false
    }
    return id, secret, true
}

// CheckAPIKeySecret compares a presented secret against the stored
// bcrypt hash, returning true on a match.
func CheckAPIKeySecret(hash []byte, secret string) bool {
    return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
