package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"shieldxfer/internal/chain"
	"shieldxfer/internal/ledger"
	"shieldxfer/internal/monitor"
)

var _ LedgerServiceServer = (*GRPCServer)(nil)

// GRPCServer serves a ledger over gRPC.
type GRPCServer struct {
	ledger  *ledger.Ledger
	metrics *monitor.Metrics
	log     zerolog.Logger
}

// NewGRPCServer wraps l. metrics may be nil.
func NewGRPCServer(l *ledger.Ledger, metrics *monitor.Metrics, log zerolog.Logger) *GRPCServer {
	return &GRPCServer{ledger: l, metrics: metrics, log: log}
}

// Register adds the service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterLedgerServiceServer(gs, s)
}

// Serve starts a gRPC server on lis.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

func (s *GRPCServer) Submit(_ context.Context, req *SubmitRequest) (*chain.WireResponse, error) {
	tx := &req.Tx
	var (
		resp chain.ProcessResponse
		code chain.ResultCode
	)
	switch req.Mode {
	case ModeApplied:
		r := s.ledger.ApplyTx(tx)
		resp, code = r, r.Code
	case ModeBroadcast:
		r := s.ledger.Broadcast(tx)
		resp, code = r, r.Code
	case ModeDryRun:
		r := s.ledger.DryRun(tx)
		resp, code = r, r.Code
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown submit mode %d", req.Mode)
	}

	if s.metrics != nil && req.Mode != ModeDryRun {
		s.metrics.RecordTx(code)
	}
	s.log.Info().
		Str("mode", req.Mode.String()).
		Str("code", code.String()).
		Int("transfers", len(tx.Transfers)).
		Msg("transaction submitted")

	w := chain.Wrap(resp)
	return &w, nil
}

func (s *GRPCServer) Denomination(_ context.Context, req *DenominationRequest) (*DenominationResponse, error) {
	d, err := s.ledger.Denomination(req.Token)
	if errors.Is(err, ledger.ErrUnknownToken) {
		return nil, status.Errorf(codes.NotFound, "token %s is not registered", req.Token)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &DenominationResponse{Decimals: uint32(d)}, nil
}

func (s *GRPCServer) FeeParams(context.Context, *FeeParamsRequest) (*chain.FeeParams, error) {
	p := s.ledger.FeeParams()
	return &p, nil
}

func (s *GRPCServer) UnspentNotes(_ context.Context, req *UnspentNotesRequest) (*UnspentNotesResponse, error) {
	return &UnspentNotesResponse{Notes: s.ledger.UnspentNotes(req.Owner, req.Token)}, nil
}

func (s *GRPCServer) Balance(_ context.Context, req *BalanceRequest) (*BalanceResponse, error) {
	return &BalanceResponse{Amount: s.ledger.Balance(req.Token, req.Owner)}, nil
}

// Interceptors returns the server option installing per-caller rate limiting
// and call metrics. Either argument may be nil.
func Interceptors(limiter *monitor.PeerRateLimiter, metrics *monitor.Metrics, log zerolog.Logger) grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		rateLimitInterceptor(limiter, metrics, log),
		metricsInterceptor(metrics),
	)
}

func rateLimitInterceptor(limiter *monitor.PeerRateLimiter, metrics *monitor.Metrics, log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if limiter == nil {
			return handler(ctx, req)
		}
		caller := callerHost(ctx)
		if !limiter.Allow(caller) {
			if metrics != nil {
				metrics.IncrementCounter(monitor.MetricRateLimited, map[string]string{"method": info.FullMethod})
			}
			log.Warn().Str("caller", caller).Str("method", info.FullMethod).Msg("rate limited")
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func metricsInterceptor(metrics *monitor.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if metrics != nil {
			metrics.RecordRPC(info.FullMethod, time.Since(start), err)
		}
		return resp, err
	}
}

// callerHost is the remote host without the port, so reconnecting clients
// share a bucket.
func callerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
