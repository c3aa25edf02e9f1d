package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/405153-Masera/deviaje-users-and-auth/internal/auth"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/domain"
	"github.com/405153-Masera/deviaje-users-and-auth/internal/service"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/health"
	"github.com/405153-Masera/deviaje-users-and-auth/pkg/middleware"
)

// RouterDeps bundles what the router needs wired.
type RouterDeps struct {
	AuthService     *service.AuthService
	PasswordService *service.PasswordService
	UserService     *service.UserService
	ReviewService   *service.ReviewService
	Codec           *auth.Codec
	HealthHandler   *health.Handler
	Logger          *slog.Logger
	AllowedOrigins  []string
}

// NewRouter creates a chi router with all service routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("users-and-auth"))
	r.Use(middleware.Tracing("users-and-auth"))
	// After Tracing so the request-scoped logger picks up trace IDs.
	r.Use(middleware.RequestLogger(deps.Logger))

	// Every request passes the authentication filter; route groups below
	// decide whether a principal is required.
	r.Use(Authenticate(deps.AuthService, deps.Codec, deps.Logger))

	// Ops endpoints
	r.Get("/health/live", deps.HealthHandler.LivenessHandler())
	r.Get("/health/ready", deps.HealthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(deps.AuthService, deps.PasswordService, deps.UserService, deps.Logger)
	userHandler := NewUserHandler(deps.UserService, deps.Logger)
	reviewHandler := NewReviewHandler(deps.ReviewService, deps.Logger)

	// Auth endpoints
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/login", authHandler.Login)
		r.Post("/signup", authHandler.Signup)
		r.Post("/refresh-token", authHandler.RefreshToken)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/logout", authHandler.Logout)
			r.Post("/change-password", authHandler.ChangePassword)
		})
	})

	// Public validation endpoints used by the signup UI and sibling services.
	r.Route("/api/public/validate", func(r chi.Router) {
		r.Get("/username", userHandler.ValidateUsername)
		r.Get("/email", userHandler.ValidateEmail)
		r.Get("/token", authHandler.ValidateToken)
	})

	// User management (role-gated)
	r.Route("/api/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		staff := RequireAuthority(domain.RoleSuperAdmin, domain.RoleGerente)
		staffPlusAgent := RequireAuthority(domain.RoleSuperAdmin, domain.RoleGerente, domain.RoleAgente)
		superadmin := RequireAuthority(domain.RoleSuperAdmin)

		r.With(staff).Get("/", userHandler.List)
		r.With(staff).Get("/role/{role}", userHandler.ListByRole)
		r.With(staff).Get("/roles", userHandler.ListRoles)
		r.With(staffPlusAgent).Get("/{id}", userHandler.Get)
		r.With(staff).Post("/", userHandler.Create)
		r.With(staff).Put("/{id}", userHandler.Update)
		r.With(superadmin).Delete("/{id}", userHandler.Deactivate)
		r.With(superadmin).Post("/{id}/activate", userHandler.Activate)
	})

	// Reviews
	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		staff := RequireAuthority(domain.RoleSuperAdmin, domain.RoleGerente)
		responders := RequireAuthority(domain.RoleSuperAdmin, domain.RoleGerente, domain.RoleAgente)

		r.Get("/", reviewHandler.List)
		r.Get("/stats", reviewHandler.Stats)
		r.Get("/category/{category}", reviewHandler.ListByCategory)
		r.Get("/user/{userId}", reviewHandler.ListByUser)
		r.Get("/{id}", reviewHandler.Get)
		r.Get("/{reviewId}/responses", reviewHandler.ListResponses)

		r.With(RequireAuth).Post("/", reviewHandler.Create)
		r.With(staff).Delete("/{id}", reviewHandler.Delete)
		r.With(responders).Post("/{reviewId}/responses", reviewHandler.Respond)
		r.With(responders).Delete("/responses/{responseId}", reviewHandler.DeleteResponse)
	})

	return r
}
