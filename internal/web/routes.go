package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/kozaktomas/staff-attendance/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	// Create handlers
	kioskHandler := handlers.NewKioskHandler(s.attendance, s.deps.Faces)
	enrollmentHandler := handlers.NewEnrollmentHandler(s.enrollment)
	staffHandler := handlers.NewStaffHandler(s.deps.Staff, s.enrollment)

	s.router.Get("/api/v1/health", handlers.NewHealthHandler(s.deps.Database).Check)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		// Kiosk endpoints are unauthenticated and hit by cameras, so they are rate limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(s.config.Web.KioskRateLimit, time.Minute))

			r.Post("/identify", kioskHandler.Identify)
			r.Post("/attendance/log", kioskHandler.LogAttendance)
			r.Post("/kiosk/scan", kioskHandler.Scan)
		})

		r.Get("/attendance", kioskHandler.ListAttendance)

		// Enrollment
		r.Post("/enroll/validate", enrollmentHandler.Validate)
		r.Post("/enroll/register", enrollmentHandler.Register)

		// Staff administration
		r.Get("/staff", staffHandler.List)
		r.Post("/staff", staffHandler.Create)
		r.Get("/staff/{id}", staffHandler.Get)
		r.Put("/staff/{id}", staffHandler.Update)
		r.Delete("/staff/{id}", staffHandler.Delete)
	})
}
