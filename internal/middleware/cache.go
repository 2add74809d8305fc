package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/event-ticketing/internal/config"
)

// cachedResponse is the envelope stored in Redis for a cache entry.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// captureWriter captures the response body while forwarding it to the
// client, up to a configured limit.  Oversized responses are forwarded
// but not cached.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    cw.size += int64(len(b))
    if cw.limit <= 0 || cw.size <= cw.limit {
        cw.buf.Write(b)
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable cache key honoring the configured prefix
// and strategy.  The variable tail is hashed so keys stay short no
// matter how long the query string gets.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    parts := []string{}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        parts = append(parts, "route", c.Path())
    case "method_route":
        parts = append(parts, "method", r.Method, "route", c.Path())
    case "method_route_query":
        parts = append(parts, "method", r.Method, "route", c.Path(), "q", r.URL.RawQuery)
    default: // "route_query"
        parts = append(parts, "route", c.Path(), "q", r.URL.RawQuery)
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum)
}

// NewRedisCache returns a middleware that serves successful responses
// for the configured methods from Redis.  Only 200 responses are
// stored; everything else passes through.  A missing Redis client
// disables caching entirely.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            key := cacheKeyFrom(cfg, c)
            if bs, err := rdb.Get(c.Request().Context(), key).Bytes(); err == nil {
                var cached cachedResponse
                if json.Unmarshal(bs, &cached) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(cached.Status, cached.ContentType, cached.Body)
                }
            }

            cw := &captureWriter{
                ResponseWriter: c.Response().Writer,
                status:         http.StatusOK,
                limit:          int64(cfg.MaxBodyBytes),
            }
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            tooBig := cw.limit > 0 && cw.size > cw.limit
            if cw.status == http.StatusOK && !tooBig {
                payload, err := json.Marshal(cachedResponse{
                    Status:      cw.status,
                    ContentType: c.Response().Header().Get(echo.HeaderContentType),
                    Body:        cw.buf.Bytes(),
                })
                if err == nil {
                    // The request context may already be done; storing the
                    // entry is best effort either way.
                    _ = rdb.SetEx(context.Background(), key, payload, ttl).Err()
                }
            }
            return nil
        }
    }
}
