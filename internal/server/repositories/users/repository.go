package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the user store.
//
// Lookups return common.ErrorNotFound when no record matches. The password
// hash is only loaded by FindByEmail with withPassword set; Save leaves the
// stored hash untouched when user.PasswordHash is empty.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string, withPassword bool) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) (*models.User, error)
}
