package trace

import (
	"context"
	"sync"

	"github.com/wsx864321/kstore/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// TraceName tracer 名称
const TraceName = "github.com/wsx864321/kstore"

var (
	tp   *tracesdk.TracerProvider
	once sync.Once
)

// Config trace collector 配置
type Config struct {
	URL         string
	ServiceName string
	Sampler     float64
}

// StartAgent 开启trace collector
func StartAgent(cfg Config) {
	once.Do(func() {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.URL)))
		if err != nil {
			log.Warn(context.Background(), "trace start agent err", log.String("err", err.Error()))
			return
		}

		tp = tracesdk.NewTracerProvider(
			tracesdk.WithSampler(tracesdk.TraceIDRatioBased(cfg.Sampler)),
			tracesdk.WithBatcher(exp),
			tracesdk.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String(cfg.ServiceName),
			)),
		)

		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{}))
	})
}

// StopAgent 关闭trace collector,在服务停止时调用StopAgent，不然可能造成trace数据的丢失
func StopAgent(ctx context.Context) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

// Tracer 返回全局 TracerProvider 下的 kstore tracer
func Tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TraceName)
}

// CommandAttrs 构建 redis 命令 span 的属性
func CommandAttrs(command, addr string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.DBSystemRedis,
		semconv.DBOperationKey.String(command),
		semconv.NetPeerNameKey.String(addr),
	}
}
