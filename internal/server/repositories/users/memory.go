package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// InMemoryRepository keeps users in process memory. It is used when the
// server runs without a database and as the store of service tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}

	now := r.now().UTC()
	created := *user
	created.ID = uuid.NewString()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.byID[created.ID] = created
	r.byEmail[created.Email] = created.ID

	return &created, nil
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string, withPassword bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.load(id, withPassword)
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.load(id, false)
}

func (r *InMemoryRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return nil, common.ErrorAlreadyExists
	}

	saved := *user
	if saved.PasswordHash == "" {
		saved.PasswordHash = stored.PasswordHash
	}
	saved.CreatedAt = stored.CreatedAt
	saved.UpdatedAt = r.now().UTC()

	delete(r.byEmail, stored.Email)
	r.byEmail[saved.Email] = saved.ID
	r.byID[saved.ID] = saved

	saved.PasswordHash = user.PasswordHash
	return &saved, nil
}

// Clone returns an independent copy of the store.
func (r *InMemoryRepository) Clone() *InMemoryRepository {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := &InMemoryRepository{
		byID:    make(map[string]models.User, len(r.byID)),
		byEmail: make(map[string]string, len(r.byEmail)),
		now:     r.now,
	}
	for id, u := range r.byID {
		c.byID[id] = u
	}
	for email, id := range r.byEmail {
		c.byEmail[email] = id
	}
	return c
}

// Replace swaps the contents of r for those of other.
func (r *InMemoryRepository) Replace(other *InMemoryRepository) {
	c := other.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = c.byID
	r.byEmail = c.byEmail
}

func (r *InMemoryRepository) load(id string, withPassword bool) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if !withPassword {
		u.PasswordHash = ""
	}
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		u.PasswordChangedAt = &t
	}
	return &u, nil
}
