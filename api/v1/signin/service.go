package signin

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "fyra.signin.v1.SignIn"

const (
	SendLinkFullMethod      = "/" + ServiceName + "/SendLink"
	DetectLinkFullMethod    = "/" + ServiceName + "/DetectLink"
	ConfirmLinkFullMethod   = "/" + ServiceName + "/ConfirmLink"
	PasswordAuthFullMethod  = "/" + ServiceName + "/PasswordAuth"
	GetUserRecordFullMethod = "/" + ServiceName + "/GetUserRecord"
)

// SignInServer is the server API for the SignIn service.
type SignInServer interface {
	SendLink(context.Context, *SendLinkRequest) (*SendLinkResponse, error)
	DetectLink(context.Context, *DetectLinkRequest) (*DetectLinkResponse, error)
	ConfirmLink(context.Context, *ConfirmLinkRequest) (*ConfirmLinkResponse, error)
	PasswordAuth(context.Context, *PasswordAuthRequest) (*PasswordAuthResponse, error)
	GetUserRecord(context.Context, *GetUserRecordRequest) (*GetUserRecordResponse, error)
}

// UnimplementedSignInServer can be embedded to get forward compatible implementations.
type UnimplementedSignInServer struct{}

func (UnimplementedSignInServer) SendLink(context.Context, *SendLinkRequest) (*SendLinkResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendLink not implemented")
}

func (UnimplementedSignInServer) DetectLink(context.Context, *DetectLinkRequest) (*DetectLinkResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DetectLink not implemented")
}

func (UnimplementedSignInServer) ConfirmLink(context.Context, *ConfirmLinkRequest) (*ConfirmLinkResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ConfirmLink not implemented")
}

func (UnimplementedSignInServer) PasswordAuth(context.Context, *PasswordAuthRequest) (*PasswordAuthResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PasswordAuth not implemented")
}

func (UnimplementedSignInServer) GetUserRecord(context.Context, *GetUserRecordRequest) (*GetUserRecordResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetUserRecord not implemented")
}

func RegisterSignInServer(s grpc.ServiceRegistrar, srv SignInServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed SignInServer method to a grpc method handler.
func unary[Req any, Resp any](
	fullMethod string,
	call func(SignInServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SignInServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SignInServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for the SignIn service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SignInServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendLink", Handler: unary(SendLinkFullMethod, SignInServer.SendLink)},
		{MethodName: "DetectLink", Handler: unary(DetectLinkFullMethod, SignInServer.DetectLink)},
		{MethodName: "ConfirmLink", Handler: unary(ConfirmLinkFullMethod, SignInServer.ConfirmLink)},
		{MethodName: "PasswordAuth", Handler: unary(PasswordAuthFullMethod, SignInServer.PasswordAuth)},
		{MethodName: "GetUserRecord", Handler: unary(GetUserRecordFullMethod, SignInServer.GetUserRecord)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/v1/signin",
}

// SignInClient is the client API for the SignIn service.
type SignInClient interface {
	SendLink(ctx context.Context, in *SendLinkRequest, opts ...grpc.CallOption) (*SendLinkResponse, error)
	DetectLink(ctx context.Context, in *DetectLinkRequest, opts ...grpc.CallOption) (*DetectLinkResponse, error)
	ConfirmLink(ctx context.Context, in *ConfirmLinkRequest, opts ...grpc.CallOption) (*ConfirmLinkResponse, error)
	PasswordAuth(ctx context.Context, in *PasswordAuthRequest, opts ...grpc.CallOption) (*PasswordAuthResponse, error)
	GetUserRecord(ctx context.Context, in *GetUserRecordRequest, opts ...grpc.CallOption) (*GetUserRecordResponse, error)
}

type signInClient struct {
	cc grpc.ClientConnInterface
}

func NewSignInClient(cc grpc.ClientConnInterface) SignInClient {
	return &signInClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *signInClient) SendLink(ctx context.Context, in *SendLinkRequest, opts ...grpc.CallOption) (*SendLinkResponse, error) {
	return invoke[SendLinkResponse](ctx, c.cc, SendLinkFullMethod, in, opts)
}

func (c *signInClient) DetectLink(ctx context.Context, in *DetectLinkRequest, opts ...grpc.CallOption) (*DetectLinkResponse, error) {
	return invoke[DetectLinkResponse](ctx, c.cc, DetectLinkFullMethod, in, opts)
}

func (c *signInClient) ConfirmLink(ctx context.Context, in *ConfirmLinkRequest, opts ...grpc.CallOption) (*ConfirmLinkResponse, error) {
	return invoke[ConfirmLinkResponse](ctx, c.cc, ConfirmLinkFullMethod, in, opts)
}

func (c *signInClient) PasswordAuth(ctx context.Context, in *PasswordAuthRequest, opts ...grpc.CallOption) (*PasswordAuthResponse, error) {
	return invoke[PasswordAuthResponse](ctx, c.cc, PasswordAuthFullMethod, in, opts)
}

func (c *signInClient) GetUserRecord(ctx context.Context, in *GetUserRecordRequest, opts ...grpc.CallOption) (*GetUserRecordResponse, error) {
	return invoke[GetUserRecordResponse](ctx, c.cc, GetUserRecordFullMethod, in, opts)
}
