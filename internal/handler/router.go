package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/slotswap/internal/auth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes bundles everything the router dispatches to.
type Routes struct {
	Auth           *AuthHandler
	Events         *EventHandler
	Swaps          *SwapHandler
	Notifications  http.Handler
	Tokens         *auth.Tokens
	AllowedOrigins []string
	Log            *slog.Logger
}

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(rt.Log))          // structured access log
	r.Use(CORS(rt.AllowedOrigins))

	// Health
	r.Get("/health", HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", rt.Auth.Register)
		r.Post("/auth/login", rt.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(rt.Tokens))

			r.Get("/auth/me", rt.Auth.Me)

			r.Route("/events", func(r chi.Router) {
				r.Post("/", rt.Events.CreateEvent)
				r.Get("/my-events", rt.Events.MyEvents)
				r.Get("/my-events.ics", rt.Events.MyEventsICS)
				r.Get("/{id}", rt.Events.GetEvent)
				r.Put("/{id}", rt.Events.UpdateEvent)
				r.Delete("/{id}", rt.Events.DeleteEvent)
			})

			r.Get("/swappable-slots", rt.Swaps.SwappableSlots)
			r.Post("/swap-request", rt.Swaps.ProposeSwap)
			r.Post("/swap-response/{requestId}", rt.Swaps.RespondSwap)
			r.Get("/swap-requests/incoming", rt.Swaps.Incoming)
			r.Get("/swap-requests/outgoing", rt.Swaps.Outgoing)
		})
	})

	// Browsers cannot set headers on the upgrade, so the token rides in ?token=.
	r.With(auth.Middleware(rt.Tokens)).Get("/ws", rt.Notifications.ServeHTTP)

	return r
}
