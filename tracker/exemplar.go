package tracker

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// ExemplarExtractor 从调用的 context 中提取 exemplar 标签。
// 返回 nil 表示当前调用不附带 exemplar。
//
// exemplar 只有在 OpenMetrics 协商下才会出现在导出结果中，标签总长
// 受 OpenMetrics 规范限制（128 个 rune），提取器应只返回少量短标签。
type ExemplarExtractor func(ctx context.Context) prometheus.Labels

// TraceExemplar 默认的 exemplar 提取器：从 context 中的 OTel SpanContext
// 提取 trace_id 和 span_id。span 无效或未采样时返回 nil，避免把
// 不可回查的 trace 标识写进导出结果。
func TraceExemplar(ctx context.Context) prometheus.Labels {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsSampled() {
		return nil
	}
	return prometheus.Labels{
		"trace_id": sc.TraceID().String(),
		"span_id":  sc.SpanID().String(),
	}
}
