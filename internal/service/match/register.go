package match

import (
	"context"

	"google.golang.org/grpc"

	"github.com/meetmatch/matchcore/internal/app"
	"github.com/meetmatch/matchcore/internal/server"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "meetmatch.v1.MatchService"

// MatchServer is the server API for the Match service.
type MatchServer interface {
	CreateUser(context.Context, *CreateUserRequest) (*UserResponse, error)
	GetUser(context.Context, *GetUserRequest) (*UserResponse, error)
	UpdateUser(context.Context, *UpdateUserRequest) (*UserResponse, error)
	GetPotentialMatches(context.Context, *GetPotentialMatchesRequest) (*GetPotentialMatchesResponse, error)
	Like(context.Context, *ActionRequest) (*ActionResponse, error)
	Dislike(context.Context, *ActionRequest) (*ActionResponse, error)
	CheckRateLimit(context.Context, *CheckRateLimitRequest) (*CheckRateLimitResponse, error)
	ListLikedYou(context.Context, *ListLikedYouRequest) (*ListLikedYouResponse, error)
	ListNewLikedYou(context.Context, *ListLikedYouRequest) (*ListLikedYouResponse, error)
	CountLikedYou(context.Context, *CountLikedYouRequest) (*CountLikedYouResponse, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
}

var _ MatchServer = (*Service)(nil)

// unary adapts a typed MatchServer method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(MatchServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(MatchServer)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Match service to grpc. Messages travel with the
// JSON codec (content-subtype "json").
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateUser", MatchServer.CreateUser),
		unary("GetUser", MatchServer.GetUser),
		unary("UpdateUser", MatchServer.UpdateUser),
		unary("GetPotentialMatches", MatchServer.GetPotentialMatches),
		unary("Like", MatchServer.Like),
		unary("Dislike", MatchServer.Dislike),
		unary("CheckRateLimit", MatchServer.CheckRateLimit),
		unary("ListLikedYou", MatchServer.ListLikedYou),
		unary("ListNewLikedYou", MatchServer.ListNewLikedYou),
		unary("CountLikedYou", MatchServer.CountLikedYou),
		unary("ListMatches", MatchServer.ListMatches),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "meetmatch/v1/match",
}

// Registrar ties the Match service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

var _ server.Registrar = (*Registrar)(nil)

// NewRegistrar creates a new Registrar for the Match service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Match service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&ServiceDesc, NewMatchService(r.appCtx))
}
