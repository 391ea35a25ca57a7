package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/undeconstructed/lastcard/game"
)

// The table service carries plain JSON rather than protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type SubmitActionRequest struct {
	GameID   string       `json:"game_id"`
	PlayerID string       `json:"player_id"`
	Payload  game.Payload `json:"payload"`
}

type GetRoundStateRequest struct {
	GameID string `json:"game_id"`
}

type GetActionsRequest struct {
	GameID string `json:"game_id"`
	After  int64  `json:"after"`
}

type GetActionsResponse struct {
	Actions []game.ActionView `json:"actions"`
}

// TableServer is the gRPC face of a table.
type TableServer interface {
	SubmitAction(context.Context, *SubmitActionRequest) (*game.Result, error)
	GetRoundState(context.Context, *GetRoundStateRequest) (*game.StateView, error)
	GetActions(context.Context, *GetActionsRequest) (*GetActionsResponse, error)
}

const tableServiceName = "lastcard.Table"

func unaryHandler[Req any](call func(TableServer, context.Context, *Req) (interface{}, error), method string) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TableServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + tableServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TableServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var tableServiceDesc = grpc.ServiceDesc{
	ServiceName: tableServiceName,
	HandlerType: (*TableServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(func(s TableServer, ctx context.Context, in *SubmitActionRequest) (interface{}, error) {
			return s.SubmitAction(ctx, in)
		}, "SubmitAction"),
		unaryHandler(func(s TableServer, ctx context.Context, in *GetRoundStateRequest) (interface{}, error) {
			return s.GetRoundState(ctx, in)
		}, "GetRoundState"),
		unaryHandler(func(s TableServer, ctx context.Context, in *GetActionsRequest) (interface{}, error) {
			return s.GetActions(ctx, in)
		}, "GetActions"),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lastcard/table",
}

func RegisterTableServer(s grpc.ServiceRegistrar, srv TableServer) {
	s.RegisterService(&tableServiceDesc, srv)
}

type tableService struct {
	table *game.Table
}

func (ts tableService) SubmitAction(ctx context.Context, in *SubmitActionRequest) (*game.Result, error) {
	res, err := ts.table.SubmitAction(ctx, in.GameID, in.PlayerID, in.Payload)
	if err != nil {
		return nil, grpcStatus(err)
	}
	return &res, nil
}

func (ts tableService) GetRoundState(ctx context.Context, in *GetRoundStateRequest) (*game.StateView, error) {
	st, err := ts.table.RoundState(ctx, in.GameID)
	if err != nil {
		return nil, grpcStatus(err)
	}
	return &st, nil
}

func (ts tableService) GetActions(ctx context.Context, in *GetActionsRequest) (*GetActionsResponse, error) {
	actions, err := ts.table.Actions(ctx, in.GameID, in.After)
	if err != nil {
		return nil, grpcStatus(err)
	}
	return &GetActionsResponse{Actions: actions}, nil
}

// grpcStatus maps table errors onto status codes.
func grpcStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case game.IsNotFound(err):
		code = codes.NotFound
	case game.IsPersistence(err):
		code = codes.Unavailable
	case game.IsInvariant(err):
		code = codes.Internal
	case game.IsValidation(err):
		code = codes.InvalidArgument
	case game.IsState(err):
		code = codes.FailedPrecondition
	default:
		code = codes.Unknown
	}
	return status.Errorf(code, "%v", err)
}

func loggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		res, err := handler(ctx, req)
		ev := log.Debug()
		if err != nil {
			ev = log.Info().Err(err)
		}
		ev.Str("method", info.FullMethod).Dur("took", time.Since(start)).Msg("call")
		return res, err
	}
}

func (s *Server) newGrpcServer(log zerolog.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	RegisterTableServer(srv, tableService{table: s.table})

	hs := health.NewServer()
	hs.SetServingStatus(tableServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return srv
}

func runGrpcGateway(ctx context.Context, server *Server, addr string) error {
	log := log.With().Str("gw", "grpc").Logger()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Info().Msgf("grpc listening on %v", ln.Addr())

	srv := server.newGrpcServer(log)
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	return srv.Serve(ln)
}

// TableClient calls a table over gRPC.
type TableClient struct {
	cc grpc.ClientConnInterface
}

func NewTableClient(cc grpc.ClientConnInterface) *TableClient {
	return &TableClient{cc: cc}
}

func (c *TableClient) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.cc.Invoke(ctx, "/"+tableServiceName+"/"+method, in, out, grpc.CallContentSubtype("json"))
}

func (c *TableClient) SubmitAction(ctx context.Context, in *SubmitActionRequest) (*game.Result, error) {
	out := new(game.Result)
	if err := c.invoke(ctx, "SubmitAction", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TableClient) GetRoundState(ctx context.Context, in *GetRoundStateRequest) (*game.StateView, error) {
	out := new(game.StateView)
	if err := c.invoke(ctx, "GetRoundState", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TableClient) GetActions(ctx context.Context, in *GetActionsRequest) (*GetActionsResponse, error) {
	out := new(GetActionsResponse)
	if err := c.invoke(ctx, "GetActions", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
