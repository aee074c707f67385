package match

import (
	"context"

	"google.golang.org/grpc"

	"github.com/meetmatch/matchcore/internal/server"
)

// Client is the typed client for the Match service. It always speaks the
// JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, c *Client, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(server.CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[CreateUserRequest, UserResponse](ctx, c, "CreateUser", in, opts)
}

func (c *Client) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[GetUserRequest, UserResponse](ctx, c, "GetUser", in, opts)
}

func (c *Client) UpdateUser(ctx context.Context, in *UpdateUserRequest, opts ...grpc.CallOption) (*UserResponse, error) {
	return invoke[UpdateUserRequest, UserResponse](ctx, c, "UpdateUser", in, opts)
}

func (c *Client) GetPotentialMatches(ctx context.Context, in *GetPotentialMatchesRequest, opts ...grpc.CallOption) (*GetPotentialMatchesResponse, error) {
	return invoke[GetPotentialMatchesRequest, GetPotentialMatchesResponse](ctx, c, "GetPotentialMatches", in, opts)
}

func (c *Client) Like(ctx context.Context, in *ActionRequest, opts ...grpc.CallOption) (*ActionResponse, error) {
	return invoke[ActionRequest, ActionResponse](ctx, c, "Like", in, opts)
}

func (c *Client) Dislike(ctx context.Context, in *ActionRequest, opts ...grpc.CallOption) (*ActionResponse, error) {
	return invoke[ActionRequest, ActionResponse](ctx, c, "Dislike", in, opts)
}

func (c *Client) CheckRateLimit(ctx context.Context, in *CheckRateLimitRequest, opts ...grpc.CallOption) (*CheckRateLimitResponse, error) {
	return invoke[CheckRateLimitRequest, CheckRateLimitResponse](ctx, c, "CheckRateLimit", in, opts)
}

func (c *Client) ListLikedYou(ctx context.Context, in *ListLikedYouRequest, opts ...grpc.CallOption) (*ListLikedYouResponse, error) {
	return invoke[ListLikedYouRequest, ListLikedYouResponse](ctx, c, "ListLikedYou", in, opts)
}

func (c *Client) ListNewLikedYou(ctx context.Context, in *ListLikedYouRequest, opts ...grpc.CallOption) (*ListLikedYouResponse, error) {
	return invoke[ListLikedYouRequest, ListLikedYouResponse](ctx, c, "ListNewLikedYou", in, opts)
}

func (c *Client) CountLikedYou(ctx context.Context, in *CountLikedYouRequest, opts ...grpc.CallOption) (*CountLikedYouResponse, error) {
	return invoke[CountLikedYouRequest, CountLikedYouResponse](ctx, c, "CountLikedYou", in, opts)
}

func (c *Client) ListMatches(ctx context.Context, in *ListMatchesRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return invoke[ListMatchesRequest, ListMatchesResponse](ctx, c, "ListMatches", in, opts)
}
