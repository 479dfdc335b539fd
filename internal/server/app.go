// Package server wires the configuration, storage, credential services and
// the HTTP and gRPC endpoints into a runnable application with graceful
// shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"

	gs "github.com/dmitrijs2005/gophauth/internal/server/grpc"
	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	credentials *services.CredentialService
	strategy    *services.TokenStrategy
	servers     []runner
}

// NewApp builds the application. Logs go to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger := logging.New(w, c.LogLevel, c.LogFormat)

	rm, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, rm)
	if err != nil {
		_ = rm.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, rm repomanager.RepositoryManager) (*App, error) {
	if err := rm.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	hasher, err := cryptox.NewPasswordHasher(c.PasswordHasher, c.BcryptCost)
	if err != nil {
		return nil, err
	}

	mailer, err := mail.New(ctx, c, logger.With("module", "mail"))
	if err != nil {
		return nil, fmt.Errorf("mail init error: %w", err)
	}

	signer := auth.NewSigner([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.ResetTokenValidityDuration)

	credentials, err := services.NewCredentialService(rm, hasher, signer, mailer, c, logger.With("module", "credentials"))
	if err != nil {
		return nil, err
	}
	strategy := services.NewTokenStrategy(rm, signer)

	router := hs.NewRouter(credentials, strategy, logger)

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		credentials: credentials,
		strategy:    strategy,
		servers: []runner{
			hs.NewHTTPServer(c.EndpointAddrHTTP, router, logger),
			gs.NewGRPCServer(c.EndpointAddrGRPC, logger, strategy, credentials),
		},
	}, nil
}

func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		return repomanager.NewInMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	m, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a termination signal arrives, or one
// of the servers fails. The first server error is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, s := range app.servers {
		wg.Add(1)
		go func(s runner) {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				app.logger.Error(ctx, err.Error())
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancelFunc()
			}
		}(s)
	}

	wg.Wait()

	if err := app.repomanager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}

	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(errs...)
}
