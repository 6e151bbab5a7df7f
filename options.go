package autometrics

import (
	"log/slog"

	"github.com/ceyewan/autometrics/tracker"
)

// options Init 的可选项。
type options struct {
	logger     *slog.Logger
	extractors []tracker.ExemplarExtractor
}

// Option 配置 Init 行为。
type Option func(*options)

// WithLogger 指定库内部日志的输出目标，默认 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTraceExemplars 启用默认的 exemplar 提取器：从 context 中的
// OTel SpanContext 提取 trace_id / span_id。
func WithTraceExemplars() Option {
	return WithExemplarExtractor(tracker.TraceExemplar)
}

// WithExemplarExtractor 指定自定义 exemplar 提取器。
// 整个进程最多配置一个提取器，配置多个时 Init 返回 ErrExemplarConflict。
func WithExemplarExtractor(e tracker.ExemplarExtractor) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, e)
	}
}

// callOptions 单次调用的可选项，由生成的代码在 PreInstrument 处传入。
type callOptions struct {
	okIf    func() bool
	errorIf func() bool
}

// CallOption 配置单次调用的分类行为。
type CallOption func(*callOptions)

// WithOkIf 指定成功谓词：谓词为真时调用记为 ok，否则记为 error。
// 与 WithErrorIf 互斥，由代码生成器保证不会同时出现。
func WithOkIf(pred func() bool) CallOption {
	return func(o *callOptions) {
		o.okIf = pred
	}
}

// WithErrorIf 指定失败谓词：谓词为真时调用记为 error，否则记为 ok。
func WithErrorIf(pred func() bool) CallOption {
	return func(o *callOptions) {
		o.errorIf = pred
	}
}
