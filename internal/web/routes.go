package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.service, time.Now())
	recognizeHandler := handlers.NewRecognizeHandler(s.service)
	enrollHandler := handlers.NewEnrollHandler(s.service)
	usersHandler := handlers.NewUsersHandler(s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/enroll", enrollHandler.Enroll)

		r.Get("/users", usersHandler.List)
		r.Delete("/users/{userID}", usersHandler.Remove)

		r.Get("/attendance", attendanceHandler.List)
	})
}
