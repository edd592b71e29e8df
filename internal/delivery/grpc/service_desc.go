package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName полное имя gRPC сервиса
const ServiceName = "detective.v1.DetectiveService"

// Методы сервиса
const (
	MethodSignIn            = "SignIn"
	MethodRegister          = "Register"
	MethodSocialSignIn      = "SocialSignIn"
	MethodSignOut           = "SignOut"
	MethodCreateCharacter   = "CreateCharacter"
	MethodGetProfile        = "GetProfile"
	MethodResetProfile      = "ResetProfile"
	MethodRecordCaseOutcome = "RecordCaseOutcome"
	MethodAllocateSkills    = "AllocateSkills"
	MethodResolveRoute      = "ResolveRoute"
)

// FullMethod возвращает полное имя метода для вызова клиентом
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// DetectiveServiceServer серверная часть сервиса.
// Запросы и ответы передаются как google.protobuf.Struct.
type DetectiveServiceServer interface {
	SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SocialSignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignOut(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateCharacter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordCaseOutcome(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AllocateSkills(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolveRoute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(DetectiveServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DetectiveServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(DetectiveServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc описание сервиса для grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DetectiveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		methodHandler(MethodSignIn, DetectiveServiceServer.SignIn),
		methodHandler(MethodRegister, DetectiveServiceServer.Register),
		methodHandler(MethodSocialSignIn, DetectiveServiceServer.SocialSignIn),
		methodHandler(MethodSignOut, DetectiveServiceServer.SignOut),
		methodHandler(MethodCreateCharacter, DetectiveServiceServer.CreateCharacter),
		methodHandler(MethodGetProfile, DetectiveServiceServer.GetProfile),
		methodHandler(MethodResetProfile, DetectiveServiceServer.ResetProfile),
		methodHandler(MethodRecordCaseOutcome, DetectiveServiceServer.RecordCaseOutcome),
		methodHandler(MethodAllocateSkills, DetectiveServiceServer.AllocateSkills),
		methodHandler(MethodResolveRoute, DetectiveServiceServer.ResolveRoute),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "detective/v1/detective.proto",
}

// RegisterDetectiveServiceServer регистрирует реализацию сервиса
func RegisterDetectiveServiceServer(s grpc.ServiceRegistrar, srv DetectiveServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
