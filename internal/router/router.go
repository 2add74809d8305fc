package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/event-ticketing/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/event-ticketing/internal/middleware" // import middleware for authentication and role enforcement
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  The provided
// PublicHandler returns sanitized data for events and tickets.  Any extra
// middleware (such as the Redis response cache) is applied to the whole
// group.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	// Expose the list of upcoming events.
	g.GET("/events", p.ListEvents)
	// Event details by event id.
	g.GET("/events/:id", p.GetEvent)
	// Ticket details by ticket id.  Tickets are looked up by UUID only, so
	// guests can poll their own purchase from the checkout success page
	// without an account.
	g.GET("/tickets/:id", p.GetTicket)
}

// RegisterOrganizer registers event-management endpoints.  All routes in
// this group require a valid access token carrying the ORGANIZER role.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ORGANIZER"))
	// Create a new event owned by the caller.
	g.POST("/events", o.CreateEvent)
	// List events owned by the caller.
	g.GET("/my/events", o.ListMyEvents)
	// List every ticket sold for one of the caller's events.
	g.GET("/events/:id/tickets", o.ListEventTickets)
	// Mint a partner API key.  The raw secret is returned exactly once.
	g.POST("/api-keys", o.CreateAPIKey)
	// List the caller's API keys (ids and labels, never secrets).
	g.GET("/api-keys", o.ListAPIKeys)
}

// RegisterPurchase registers the buyer-facing ticket endpoints.  Purchasing
// is open to guests; the ticket history endpoint requires a login so the
// purchaser email can be taken from the token instead of the request.
func RegisterPurchase(e *echo.Echo, h *handler.PurchaseHandler, jwtSecret string) {
	// Buy tickets for an event.  No authentication required.
	e.POST("/v1/events/:id/tickets", h.PurchaseTicket)

	g := e.Group("/v1/my")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.GET("/tickets", h.MyTickets)
}

// RegisterPartner registers the third-party integration endpoints.  Callers
// authenticate with an X-API-Key header; the APIKeyAuth middleware resolves
// the key to its owning organizer before the handler runs.
func RegisterPartner(e *echo.Echo, h *handler.PartnerHandler, keys repository.APIKeyRepo) {
	g := e.Group("/v1/partner")
	g.Use(middleware.APIKeyAuth(keys))
	// Issue a ticket for one of the key owner's events.
	g.POST("/tickets", h.IssueTicket)
}

// RegisterPayments registers the payment provider callback endpoint.  The
// route is unauthenticated at the HTTP layer; the handler verifies the
// provider's signature on the payload instead.
func RegisterPayments(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/payments/webhook", w.HandleCallback)
}
