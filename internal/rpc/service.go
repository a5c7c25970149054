package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"shieldxfer/internal/chain"
)

const serviceName = "shieldxfer.v1.LedgerService"

// LedgerServiceServer is the server side of the node service.
type LedgerServiceServer interface {
	Submit(context.Context, *SubmitRequest) (*chain.WireResponse, error)
	Denomination(context.Context, *DenominationRequest) (*DenominationResponse, error)
	FeeParams(context.Context, *FeeParamsRequest) (*chain.FeeParams, error)
	UnspentNotes(context.Context, *UnspentNotesRequest) (*UnspentNotesResponse, error)
	Balance(context.Context, *BalanceRequest) (*BalanceResponse, error)
}

// RegisterLedgerServiceServer registers srv on a gRPC server.
func RegisterLedgerServiceServer(s *grpc.Server, srv LedgerServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

// unary adapts a LedgerServiceServer method to a grpc handler. The interceptor
// chain, when present, wraps the call.
func unary[Req, Resp any](method string, call func(LedgerServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		s := srv.(LedgerServiceServer)
		if interceptor == nil {
			return call(s, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: unary("Submit", LedgerServiceServer.Submit)},
		{MethodName: "Denomination", Handler: unary("Denomination", LedgerServiceServer.Denomination)},
		{MethodName: "FeeParams", Handler: unary("FeeParams", LedgerServiceServer.FeeParams)},
		{MethodName: "UnspentNotes", Handler: unary("UnspentNotes", LedgerServiceServer.UnspentNotes)},
		{MethodName: "Balance", Handler: unary("Balance", LedgerServiceServer.Balance)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shieldxfer/ledger.go",
}
