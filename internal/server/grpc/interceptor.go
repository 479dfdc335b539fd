package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userKey ctxKey = "user"

const healthServicePrefix = "/grpc.health.v1.Health/"

// UserFromContext returns the user authenticated by the interceptor.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey).(*models.User)
	return u, ok
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if strings.HasPrefix(info.FullMethod, healthServicePrefix) || publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AuthorizationHeaderName)
		if len(values) > 0 {
			accessToken, _ = common.BearerToken(values[0])
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	user, err := s.auth.Authenticate(ctx, accessToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTokenInvalid),
			errors.Is(err, common.ErrStaleCredentials),
			errors.Is(err, common.ErrUserNotFound):
			return nil, status.Error(codes.Unauthenticated, err.Error())
		default:
			s.logger.Error(ctx, "authenticate", "method", info.FullMethod, "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	ctx = context.WithValue(ctx, userKey, user)

	return handler(ctx, req)
}
