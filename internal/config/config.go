package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses duration values
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// background sweeper and checkout reservation lifetime.
type Config struct {
    Env                 string        // application environment (e.g. "dev", "prod")
    Port                string        // HTTP port to listen on
    BaseURL             string        // public base URL used to build checkout redirect links
    JWTSecret           string        // secret shared with the identity provider to verify HS256 tokens
    StoreDriver         string        // document store driver: "mongo" or "memory"
    MongoURI            string        // MongoDB connection string (required for the mongo driver)
    MongoDB             string        // MongoDB database name
    StripeSecretKey     string        // Stripe API secret; empty disables paid checkout
    StripeWebhookSecret string        // Stripe webhook signing secret
    SweepInterval       time.Duration // how often the expiry sweeper runs
    ReservationTTL      time.Duration // how long a pending ticket may wait for payment
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Stripe credentials
// are optional: when absent, paid checkout is disabled and only free
// events can be purchased.
func Load() Config {
    cfg := Config{
        Env:                 must("APP_ENV"),    // environment (dev/test/prod)
        Port:                must("APP_PORT"),   // port to bind the HTTP server
        BaseURL:             must("BASE_URL"),   // e.g. https://tickets.example.com
        JWTSecret:           must("JWT_SECRET"), // token verification secret
        StoreDriver:         envStr("STORE_DRIVER", "mongo"),
        MongoURI:            os.Getenv("MONGO_URI"),
        MongoDB:             envStr("MONGO_DB", "ticketing"),
        StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
        StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
        SweepInterval:       envDur("SWEEP_INTERVAL", time.Minute),
        ReservationTTL:      envDur("RESERVATION_TTL", 30*time.Minute),
    }
    if cfg.StoreDriver == "mongo" && cfg.MongoURI == "" {
        log.Fatalf("missing required env var: MONGO_URI (or set STORE_DRIVER=memory)")
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
