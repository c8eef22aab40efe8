package store

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	ktrace "github.com/wsx864321/kstore/pkg/trace"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const pipelineCommand = "pipeline"

// hook 观察拨号与命令执行，驱动事件、指标与 trace
type hook struct {
	s *Store
}

var _ redis.Hook = hook{}

func (h hook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.s.onDialError(ctx, addr, err)
			return nil, err
		}
		h.s.onDial(ctx, addr)
		return conn, nil
	}
}

func (h hook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		ctx, span := h.s.startSpan(ctx, cmd.Name())
		err := next(ctx, cmd)
		h.s.afterCommand(ctx, cmd.Name(), time.Since(start), err, span)
		return err
	}
}

func (h hook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		ctx, span := h.s.startSpan(ctx, pipelineCommand)
		err := next(ctx, cmds)
		h.s.afterCommand(ctx, pipelineCommand, time.Since(start), err, span)
		return err
	}
}

func (s *Store) startSpan(ctx context.Context, command string) (context.Context, trace.Span) {
	if !s.opts.tracing {
		return ctx, nil
	}
	return ktrace.Tracer().Start(ctx, "redis."+command,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(ktrace.CommandAttrs(command, s.addr)...),
	)
}

func (s *Store) afterCommand(ctx context.Context, command string, cost time.Duration, err error, span trace.Span) {
	result := resultOK
	switch {
	case errors.Is(err, redis.Nil), redis.HasErrorPrefix(err, "NOSCRIPT"):
		result = resultMiss
	case err != nil:
		result = resultError
	}
	s.metrics.observeCommand(command, result, cost)

	if span != nil {
		if result == resultError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}

	if s.opts.slowThreshold > 0 && cost > s.opts.slowThreshold {
		s.emit(ctx, EventInfo{Event: EventWarning, Command: command, Cost: cost})
	}

	if result == resultError && isNetworkError(err) {
		s.onConnectionLost(ctx, err)
	}
}

// isNetworkError 判断错误是否意味着连接已断开，redis 协议层错误和调用方 ctx 取消/超时不算
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	// context.DeadlineExceeded 也实现了 net.Error
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
