package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/ledger"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/payment"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// stubProvider is a payment.Provider for handler tests.  Both hooks are
// optional; the defaults succeed with canned values.
type stubProvider struct {
	createFn func(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error)
	verifyFn func(payload []byte, signature string) (*payment.CallbackEvent, error)
}

func (s *stubProvider) CreateCheckoutSession(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error) {
	if s.createFn != nil {
		return s.createFn(ctx, in)
	}
	return &payment.CheckoutSession{ID: "cs_test_123", URL: "https://checkout.test/cs_test_123"}, nil
}

func (s *stubProvider) VerifyCallback(payload []byte, signature string) (*payment.CallbackEvent, error) {
	if s.verifyFn != nil {
		return s.verifyFn(payload, signature)
	}
	return nil, errors.New("no verifyFn configured")
}

// testEnv bundles in-memory repositories and a ledger for handler tests.
type testEnv struct {
	events  *repository.MemoryEventRepo
	tickets *repository.MemoryTicketRepo
	keys    *repository.MemoryAPIKeyRepo
	ledger  *ledger.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		events:  repository.NewMemoryEventRepo(),
		tickets: repository.NewMemoryTicketRepo(),
		keys:    repository.NewMemoryAPIKeyRepo(),
	}
	env.ledger = ledger.New(env.events, env.tickets, ledger.Options{})
	return env
}

// seedEvent stores an event with the given price and capacity and
// returns it.
func (env *testEnv) seedEvent(t *testing.T, id string, priceCents int64, capacity int) *model.Event {
	t.Helper()
	ev := &model.Event{
		ID:            id,
		Name:          "Test Concert",
		Location:      "Main Hall",
		Date:          time.Now().Add(48 * time.Hour).UTC(),
		PriceCents:    priceCents,
		TotalCapacity: capacity,
		Available:     capacity,
		Version:       1,
		CreatedBy:     "org-1",
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, env.events.Create(context.Background(), ev))
	return ev
}

// newJSONContext builds an echo.Context around a JSON request and
// returns it with the response recorder.
func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// decodeBody unmarshals a recorded JSON response into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

// asOrganizer stamps the claims that JWTAuth and RequireRole would have
// set for an authenticated organizer.
func asOrganizer(c echo.Context, organizerID string) {
	c.Set("user_id", organizerID)
	c.Set("email", organizerID+"@example.com")
	c.Set("role", "ORGANIZER")
}
