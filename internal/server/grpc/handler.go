package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthServiceName is the fully qualified name of the credential service.
// Requests and responses are google.protobuf.Struct messages whose fields
// match the JSON API.
const AuthServiceName = "gophauth.v1.Auth"

// AuthServer is the credential service as served over gRPC.
type AuthServer interface {
	SignUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SignIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ForgotPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Me(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// publicMethods are callable without a login token.
var publicMethods = map[string]bool{
	"/" + AuthServiceName + "/SignUp":         true,
	"/" + AuthServiceName + "/SignIn":         true,
	"/" + AuthServiceName + "/ChangePassword": true,
	"/" + AuthServiceName + "/ForgotPassword": true,
	"/" + AuthServiceName + "/ResetPassword":  true,
}

func unaryHandler(method string, call func(AuthServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + AuthServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AuthServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AuthServiceDesc describes the credential service for grpc.Server.
var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignUp", Handler: unaryHandler("SignUp", AuthServer.SignUp)},
		{MethodName: "SignIn", Handler: unaryHandler("SignIn", AuthServer.SignIn)},
		{MethodName: "ChangePassword", Handler: unaryHandler("ChangePassword", AuthServer.ChangePassword)},
		{MethodName: "ForgotPassword", Handler: unaryHandler("ForgotPassword", AuthServer.ForgotPassword)},
		{MethodName: "ResetPassword", Handler: unaryHandler("ResetPassword", AuthServer.ResetPassword)},
		{MethodName: "Me", Handler: unaryHandler("Me", AuthServer.Me)},
	},
	Streams: []grpc.StreamDesc{},
}

func (s *GRPCServer) SignUp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.credentials.SignUp(ctx, models.Registration{
		Email:    stringField(req, "email"),
		Password: stringField(req, "password"),
		Name:     stringField(req, "name"),
	})
	if err != nil {
		return nil, s.statusFor(ctx, "SignUp", err)
	}
	return toStruct(result)
}

func (s *GRPCServer) SignIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.credentials.SignIn(ctx, stringField(req, "email"), stringField(req, "password"))
	if err != nil {
		return nil, s.statusFor(ctx, "SignIn", err)
	}
	return toStruct(result)
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.credentials.ChangePassword(ctx,
		stringField(req, "email"), stringField(req, "oldPassword"), stringField(req, "newPassword"))
	if err != nil {
		return nil, s.statusFor(ctx, "ChangePassword", err)
	}
	return toStruct(result)
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.credentials.ForgotPassword(ctx, stringField(req, "email"))
	if err != nil {
		return nil, s.statusFor(ctx, "ForgotPassword", err)
	}
	return toStruct(result)
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.credentials.ResetPassword(ctx, stringField(req, "token"), stringField(req, "password"))
	if err != nil {
		return nil, s.statusFor(ctx, "ResetPassword", err)
	}
	return toStruct(result)
}

// Me returns the user the interceptor authenticated.
func (s *GRPCServer) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return toStruct(struct {
		User models.PublicUser `json:"user"`
	}{User: user.Public()})
}

func (s *GRPCServer) statusFor(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrDuplicateUser):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrTokenInvalid),
		errors.Is(err, common.ErrStaleCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// toStruct converts a result to a Struct through its JSON form, so both
// transports share field names.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
