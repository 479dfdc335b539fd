// Package grpc exposes the credential service over gRPC. The health service
// and the credential operations that establish a login are public; every
// other call must carry a login token in the "authorization" metadata.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Authenticator resolves a raw bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*models.User, error)
}

// CredentialService is the subset of services.CredentialService the
// handlers call.
type CredentialService interface {
	SignUp(ctx context.Context, reg models.Registration) (*models.AuthResult, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthResult, error)
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (*models.AuthResult, error)
	ForgotPassword(ctx context.Context, email string) (*models.MessageResult, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*models.ResetResult, error)
}

type GRPCServer struct {
	address     string
	auth        Authenticator
	credentials CredentialService
	logger      logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, auth Authenticator, credentials CredentialService) *GRPCServer {
	return &GRPCServer{
		address:     a,
		logger:      l.With("module", "grpc_server"),
		auth:        auth,
		credentials: credentials,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {
	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	srv.RegisterService(&AuthServiceDesc, s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
