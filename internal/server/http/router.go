// Package http exposes the credential service as a JSON API.
package http

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// CredentialService is the subset of services.CredentialService the
// handlers call.
type CredentialService interface {
	SignUp(ctx context.Context, reg models.Registration) (*models.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthResult, error)
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (*models.AuthResult, error)
	ForgotPassword(ctx context.Context, email string) (*models.MessageResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*models.ResetResult, error)
}

// Authenticator resolves a raw bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, error)
}

// NewRouter builds the HTTP handler with middleware and routes.
func NewRouter(svc CredentialService, auth Authenticator, logger logging.Logger) http.Handler {
	h := &Handlers{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.Patch("/password", h.ChangePassword)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Patch("/reset-password/{token}", h.ResetPassword)

		r.With(bearerAuth(auth, logger)).Get("/me", h.Me)
	})

	return r
}
