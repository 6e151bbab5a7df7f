// Package tracker 定义指标跟踪器：每次被插桩的函数调用对应一次
// Start/Finish（或 Start/Drop）生命周期，由跟踪器落到具体的指标后端。
//
// 提供三个实现：
//   - Prometheus 后端（默认）：直接使用 prometheus/client_golang 的
//     原生指标类型，支持 exemplar；
//   - OpenTelemetry 后端：经 OTel SDK 聚合后由 Prometheus exporter
//     导出到同一个 Registry；
//   - noop 后端：库未初始化或被禁用时使用，所有操作为空。
//
// 三个后端导出的序列名称、标签键和标签顺序完全一致，由 schema 包
// 统一约束，切换后端不影响已有的查询和告警。
package tracker

import (
	"context"

	"github.com/ceyewan/autometrics/schema"
)

// Tracker 指标跟踪器接口。
type Tracker interface {
	// Start 开始跟踪一次函数调用。
	// gauge 非 nil 时并发 gauge 立即加一；返回的 Call 必须以
	// Finish 或 Drop 二者之一收尾，否则 gauge 会永久偏高。
	Start(ctx context.Context, gauge *schema.GaugeLabels) Call

	// SetBuildInfo 设置 build_info 指标（值恒为 1）。
	// 只有首次调用生效，后续调用被忽略。
	SetBuildInfo(labels schema.BuildInfoLabels)

	// InitializeCounters 为每个已登记的函数写入一条零值计数器样本，
	// 让函数清单在第一次真实调用前就出现在监控面板上。
	InitializeCounters(descs []schema.FunctionDescription)
}

// Call 一次进行中的函数调用。
type Call interface {
	// Finish 正常收尾：计数器加一、观测延迟、并发 gauge 减一。
	Finish(counter *schema.CounterLabels, histogram *schema.HistogramLabels)

	// Drop 放弃收尾：只回退并发 gauge，不产生计数和延迟样本。
	// 用于函数 panic 展开等调用没有正常完成的场景。
	Drop()
}
