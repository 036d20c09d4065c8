// Package tracer 封装书籍流水线的 OpenTelemetry 链路追踪
package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"z-book-ai-api/pkg/logger"
)

const instrumentation = "z-book-ai-api"

// 书籍领域的 span 属性键
const (
	AttrBookID = attribute.Key("book.id")
	AttrUnitID = attribute.Key("unit.id")
	AttrJobID  = attribute.Key("job.id")
	AttrStage  = attribute.Key("pipeline.stage")
)

// 日志上下文里的资源标识与 span 属性的对应关系
var contextAttrs = []struct {
	key  logger.ContextKey
	attr attribute.Key
}{
	{logger.BookIDKey, AttrBookID},
	{logger.UnitIDKey, AttrUnitID},
	{logger.JobIDKey, AttrJobID},
}

var tracer trace.Tracer = otel.Tracer(instrumentation)

// Config 追踪配置
type Config struct {
	ServiceName string
	Version     string
	Environment string
	Endpoint    string
	SampleRate  float64
	Enabled     bool
}

// Init 安装全局 TracerProvider；未启用时沿用全局 noop 实现
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	// worker 从消息元数据续接 API 侧的链路
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracer = tp.Tracer(cfg.ServiceName)

	return tp.Shutdown, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}
	return res, nil
}

// sampler 按比例采样根 span，子 span 跟随上游决定
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case rate <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Start 开启 span，并带上上下文中已知的书籍、单元与任务标识
func Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if attrs := ContextAttributes(ctx); len(attrs) > 0 {
		opts = append(opts, trace.WithAttributes(attrs...))
	}
	return tracer.Start(ctx, name, opts...)
}

// StartStage 为流水线阶段开启 span
func StartStage(ctx context.Context, stage string) (context.Context, trace.Span) {
	return Start(ctx, "book."+stage, trace.WithAttributes(AttrStage.String(stage)))
}

// ContextAttributes 从日志上下文提取资源标识
func ContextAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for _, ca := range contextAttrs {
		if v, ok := ctx.Value(ca.key).(string); ok && v != "" {
			attrs = append(attrs, ca.attr.String(v))
		}
	}
	return attrs
}

// End 结束 span，err 非空时记录错误状态
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
