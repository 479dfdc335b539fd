package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeMailer struct {
	sent []mail.Message
	err  error
	// block waits for ctx to end before failing
	block bool
}

func (f *fakeMailer) SendEmail(ctx context.Context, msg mail.Message) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

// failingRepoManager returns err from every store call.
type failingRepoManager struct {
	err error
}

type failingRepo struct{ err error }

func (r failingRepo) Create(context.Context, *models.User) (*models.User, error) { return nil, r.err }
func (r failingRepo) FindByEmail(context.Context, string, bool) (*models.User, error) {
	return nil, r.err
}
func (r failingRepo) FindByID(context.Context, string) (*models.User, error)   { return nil, r.err }
func (r failingRepo) Save(context.Context, *models.User) (*models.User, error) { return nil, r.err }

func (m failingRepoManager) Users() users.Repository { return failingRepo(m) }
func (m failingRepoManager) WithTx(ctx context.Context, fn repomanager.TxFunc) error {
	return fn(ctx, failingRepo(m))
}
func (m failingRepoManager) RunMigrations(context.Context) error { return nil }
func (m failingRepoManager) Close() error                        { return nil }

var errStore = errors.New("store down")

type fixture struct {
	svc      *CredentialService
	strategy *TokenStrategy
	signer   *auth.Signer
	rm       *repomanager.InMemoryRepositoryManager
	mailer   *fakeMailer
	clock    *fakeClock
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testConfig()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	signer := auth.NewSigner([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, cfg.ResetTokenValidityDuration).
		WithClock(clock.Now)
	rm := repomanager.NewInMemoryRepositoryManager()
	mailer := &fakeMailer{}

	svc, err := NewCredentialService(rm, cryptox.NewBcryptHasher(bcrypt.MinCost), signer, mailer, cfg, logging.Nop())
	if err != nil {
		t.Fatalf("NewCredentialService: %v", err)
	}
	svc.WithClock(clock.Now)

	return &fixture{
		svc:      svc,
		strategy: NewTokenStrategy(rm, signer),
		signer:   signer,
		rm:       rm,
		mailer:   mailer,
		clock:    clock,
	}
}

func (f *fixture) signUp(t *testing.T, email, password string) *models.AuthResult {
	t.Helper()
	res, err := f.svc.SignUp(context.Background(), models.Registration{Email: email, Password: password})
	if err != nil {
		t.Fatalf("SignUp(%q): %v", email, err)
	}
	return res
}
