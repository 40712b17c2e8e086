package rpc

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/segments"
	"github.com/go-sif/segments/codec"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/logging"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const defaultMaxMessageSize = 64 * 1024 * 1024

func init() {
	codec.Register(&entry{})
}

// entry is the payload of a Put
type entry struct {
	Key   string
	Value interface{}
}

// ServerOptions configures a Server
type ServerOptions struct {
	MaxMessageSize int                   // the largest value, in bytes, which may be sent or received. Defaults to 64MiB.
	Logger         log.Logger            // destination for log messages. Defaults to a no-op Logger.
	Registerer     prometheus.Registerer // request metrics are registered here, if non-nil
}

func ensureDefaultServerOptionsValues(opts *ServerOptions) *ServerOptions {
	if opts == nil {
		opts = &ServerOptions{}
	}
	res := *opts
	if res.MaxMessageSize <= 0 {
		res.MaxMessageSize = defaultMaxMessageSize
	}
	res.Logger = logging.OrNop(res.Logger)
	return &res
}

// Server exposes a segments.Store over gRPC
type Server struct {
	store  segments.Store
	server *grpc.Server
	logger log.Logger
}

// NewServer creates a Server for a Store. Call Serve to start accepting connections.
func NewServer(store segments.Store, opts *ServerOptions) *Server {
	opts = ensureDefaultServerOptionsValues(opts)
	m := newMetrics(opts.Registerer)
	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(opts.MaxMessageSize),
		grpc.MaxSendMsgSize(opts.MaxMessageSize),
		grpc.UnaryInterceptor(m.instrument),
	)
	s := &Server{
		store:  store,
		server: server,
		logger: opts.Logger,
	}
	s.server.RegisterService(&storeServiceDesc, &storeServer{store: store, logger: opts.Logger})
	return s
}

// Serve accepts connections on lis, blocking until the Server stops
func (s *Server) Serve(lis net.Listener) error {
	level.Info(s.logger).Log("msg", "serving store", "addr", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// GracefulStop stops the Server, waiting for RPCs to finish
func (s *Server) GracefulStop() {
	s.server.GracefulStop()
}

// Stop stops the Server immediately
func (s *Server) Stop() {
	s.server.Stop()
}

// storeServer implements storeServiceServer over a segments.Store
type storeServer struct {
	store  segments.Store
	logger log.Logger
}

func (s *storeServer) Put(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	v, err := codec.Unmarshal(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	e, ok := v.(*entry)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "Put expects an entry, got %T", v)
	}
	if err := s.store.Put(ctx, segments.Key(e.Key), e.Value); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *storeServer) Get(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	v, err := s.store.Get(ctx, segments.Key(req.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}
	data, err := codec.Marshal(v)
	if err != nil {
		level.Error(s.logger).Log("msg", "unable to encode value", "key", req.GetValue(), "err", err)
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(data), nil
}

func (s *storeServer) Remove(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.store.Remove(ctx, segments.Key(req.GetValue())); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *storeServer) Keys(ctx context.Context, req *wrapperspb.BoolValue) (*structpb.ListValue, error) {
	keys, err := s.store.Keys(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	res := &structpb.ListValue{Values: make([]*structpb.Value, len(keys))}
	for i, k := range keys {
		res.Values[i] = structpb.NewStringValue(string(k))
	}
	return res, nil
}

// toStatus converts a Store error into a gRPC status
func toStatus(err error) error {
	var missing errors.MissingKeyError
	switch {
	case stderrors.As(err, &missing):
		return status.Error(codes.NotFound, missing.Key)
	case stderrors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
