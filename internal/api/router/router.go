// Package router assembles the portal's HTTP surface: public health and
// metrics endpoints plus the JWT-protected /portal routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oakwell/portal-api/internal/http/handlers"
	httpmiddleware "github.com/oakwell/portal-api/internal/http/middleware"
	"github.com/oakwell/portal-api/internal/messages"
	"github.com/oakwell/portal-api/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Booking            *handlers.BookingHandler
	Catalog            *handlers.CatalogHandler
	Appointments       *handlers.AppointmentsHandler
	MessageRelay       *messages.Relay
	MetricsHandler     http.Handler
	PatientJWTSecret   string
	CORSAllowedOrigins []string
}

// New creates the portal router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Patient-facing routes require a valid bearer token.
	r.Route("/portal", func(portal chi.Router) {
		portal.Use(httpmiddleware.PatientAuth(cfg.PatientJWTSecret))
		portal.Use(httpmiddleware.RateLimit(10, 20))

		portal.Get("/doctors", cfg.Catalog.ListDoctors)
		portal.Get("/doctors/{doctorID}/services", cfg.Catalog.ListDoctorServices)
		portal.Get("/services/primary", cfg.Catalog.ListPrimaryServices)
		portal.Get("/appointments", cfg.Appointments.List)

		portal.Route("/booking", func(b chi.Router) {
			b.Get("/selection", cfg.Booking.GetSelection)
			b.Put("/doctor", cfg.Booking.SetDoctor)
			b.Put("/primary-service", cfg.Booking.SetPrimaryService)
			b.Put("/service", cfg.Booking.SetMedicalService)
			b.Put("/date", cfg.Booking.SetDate)
			b.Get("/slots", cfg.Booking.ResolveSlots)
			b.Put("/slot", cfg.Booking.SetSlot)
			b.Post("/submit", cfg.Booking.Submit)
			b.Route("/payment", func(p chi.Router) {
				p.Post("/confirm", cfg.Booking.ConfirmPayment)
				p.Post("/cancel", cfg.Booking.CancelPayment)
			})
		})

		if cfg.MessageRelay != nil {
			portal.Get("/messages/ws", cfg.MessageRelay.Serve)
		}
	})

	return r
}
