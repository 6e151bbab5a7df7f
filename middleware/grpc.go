package middleware

import (
	"context"
	"strings"
	"sync"

	"google.golang.org/grpc"

	"github.com/ceyewan/autometrics"
)

// UnaryServerInterceptor 返回记录函数级指标的一元拦截器。
// function / module 标签从 FullMethod 拆解：
// "/helloworld.Greeter/SayHello" ⇒ function "Greeter.SayHello"，module "helloworld"。
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	var funcs sync.Map

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		ctx = autometrics.PreInstrument(ctx, methodFunc(&funcs, info.FullMethod))
		defer autometrics.Instrument(ctx, &err)
		resp, err = handler(ctx, req)
		return resp, err
	}
}

// StreamServerInterceptor 返回记录函数级指标的流式拦截器。
// 整个流算一次调用，流结束时的错误决定 result 标签。
func StreamServerInterceptor() grpc.StreamServerInterceptor {
	var funcs sync.Map

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx := autometrics.PreInstrument(ss.Context(), methodFunc(&funcs, info.FullMethod))
		defer autometrics.Instrument(ctx, &err)
		err = handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
		return err
	}
}

// wrappedStream 让流的 Context 携带新的调用方身份。
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *wrappedStream) Context() context.Context { return s.ctx }

func methodFunc(funcs *sync.Map, fullMethod string) *autometrics.Func {
	if f, ok := funcs.Load(fullMethod); ok {
		return f.(*autometrics.Func)
	}
	name, module := splitFullMethod(fullMethod)
	f, _ := funcs.LoadOrStore(fullMethod, &autometrics.Func{Name: name, Module: module})
	return f.(*autometrics.Func)
}

// splitFullMethod 拆解 gRPC 方法全名。
func splitFullMethod(fullMethod string) (name, module string) {
	trimmed := strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(trimmed, "/")
	if !ok {
		return trimmed, ""
	}
	if i := strings.LastIndex(service, "."); i >= 0 {
		return service[i+1:] + "." + method, service[:i]
	}
	return service + "." + method, ""
}
