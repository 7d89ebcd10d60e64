package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/KunalGupta25/EduConnect/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	verifyHandler := handlers.NewVerifyHandler(s.engine, s.config)
	attendanceHandler := handlers.NewAttendanceHandler(s.engine, s.stores.Ledger, s.stores.Students)
	studentsHandler := handlers.NewStudentsHandler(s.engine, s.stores.Students, s.config)
	anchorsHandler := handlers.NewAnchorsHandler(s.stores.Anchors)
	requestsHandler := handlers.NewRequestsHandler(s.engine, s.stores.Requests, s.stores.Students)
	alertsHandler := handlers.NewAlertsHandler(s.hub)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Verification
		r.Post("/attendance/verify", verifyHandler.Verify)
		r.Post("/attendance/sync", verifyHandler.Sync)
		r.Post("/attendance/identify", verifyHandler.Identify)

		// Ledger
		r.Get("/attendance/day", attendanceHandler.ListDay)
		r.Get("/attendance/summary", attendanceHandler.Summary)
		r.Post("/attendance/day/reset", attendanceHandler.ResetDay)
		r.Post("/attendance/mark", attendanceHandler.Mark)

		// Students
		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Create)
		r.Get("/students/{id}", studentsHandler.Get)
		r.Post("/students/{id}/enroll", studentsHandler.Enroll)
		r.Get("/students/{id}/monthly-stats", attendanceHandler.MonthlyStats)

		// Teacher anchors
		r.Put("/teachers/{id}/location", anchorsHandler.SetLocation)

		// Manual attendance requests
		r.Get("/requests", requestsHandler.List)
		r.Post("/requests", requestsHandler.Create)
		r.Post("/requests/{id}/approve", requestsHandler.Approve)
		r.Delete("/requests/{id}", requestsHandler.Reject)

		// Live alerts
		r.Get("/alerts/ws", alertsHandler.Subscribe)
	})
}
