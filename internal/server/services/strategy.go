package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenStrategy resolves a bearer token to the user it was issued for.
//
// A token is rejected when its signature or expiry is bad, when the user no
// longer exists, or when the user's password changed after the token's iat.
type TokenStrategy struct {
	repomanager repomanager.RepositoryManager
	signer      *auth.Signer
}

func NewTokenStrategy(m repomanager.RepositoryManager, signer *auth.Signer) *TokenStrategy {
	return &TokenStrategy{repomanager: m, signer: signer}
}

// Authenticate verifies raw and validates its claims.
func (s *TokenStrategy) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.signer.Verify(raw)
	if err != nil {
		return nil, err
	}
	return s.Validate(ctx, claims)
}

// Validate checks already verified claims against the stored user.
func (s *TokenStrategy) Validate(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	if claims == nil || claims.IssuedAt == nil || claims.IssuedAtMicros == 0 {
		return nil, common.ErrTokenInvalid
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, common.ErrTokenInvalid
	}

	user, err := s.repomanager.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if user.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return nil, common.ErrStaleCredentials
	}

	return user, nil
}
