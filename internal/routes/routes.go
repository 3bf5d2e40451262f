package routes

import (
	"github.com/campuskit/timetable-portal/internal/auth"
	"github.com/campuskit/timetable-portal/internal/handlers"
	"github.com/campuskit/timetable-portal/internal/middleware"
	"github.com/campuskit/timetable-portal/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	studentHandler *handlers.StudentHandler,
	adminHandler *handlers.AdminHandler,
	guard *auth.Middleware,
) {
	loginLimit := middleware.RateLimitByIP(middleware.LoginRateLimit())
	recoveryLimit := middleware.RateLimitByIP(middleware.RecoveryRateLimit())

	// Public routes
	router.With(loginLimit).Post("/auth/login", authHandler.Login)
	router.With(loginLimit).Post("/admin/login", adminHandler.Login)
	router.With(recoveryLimit).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.With(recoveryLimit).Post("/auth/reset-password", authHandler.ResetPassword)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(guard.Authenticate)

		r.Post("/auth/logout", authHandler.Logout)

		// Students may only fetch their own record; admins pass the
		// ownership check for any id
		r.Group(func(r chi.Router) {
			r.Use(guard.FirstLoginGate)
			r.With(guard.RequireOwnership("studentID")).
				Get("/students/{studentID}/timetable", studentHandler.TimetableByID)
		})

		// Student area; the first-login gate lets change-password through
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAccountType(models.UserTypeStudent))
			r.Use(guard.FirstLoginGate)

			r.Post("/auth/change-password", authHandler.ChangePassword)
			r.Get("/student/timetable", studentHandler.Timetable)
			r.Get("/student/profile", studentHandler.Profile)
		})

		// Admin area
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAccountType(models.UserTypeAdmin))

			r.Post("/admin/logout", adminHandler.Logout)
			r.Get("/admin/dashboard", adminHandler.Dashboard)

			r.Group(func(r chi.Router) {
				r.Use(guard.RequirePermission(models.PermManageStudents))
				r.Get("/admin/students", adminHandler.Students)
				r.Get("/admin/students/{rollNumber}", adminHandler.StudentDetails)
			})

			r.Group(func(r chi.Router) {
				r.Use(guard.RequirePermission(models.PermViewActivityLogs))
				r.Get("/admin/activity-logs", adminHandler.ActivityLogs)
			})
		})
	})
}
