// Package schema 定义 autometrics 的指标名称、标签键、标签顺序和默认直方图桶。
// 这里的常量是整个系统的单一事实来源：tracker 的各个后端和规则生成器
// 都从同一组常量派生指标名与标签名，避免两处维护导致的漂移——标签
// 漂移会让所有依赖这些标签的面板和告警静默失效。
//
// 命名存在两种形式：内部点分形式（function.calls.count）和 Prometheus
// 导出形式（function_calls_count）。两者的映射是机械的 "." → "_" 替换，
// 由 ToPrometheusName 统一完成。
package schema

import "strings"

// 指标名称（内部点分形式）
const (
	CounterName   = "function.calls.count"
	HistogramName = "function.calls.duration"
	GaugeName     = "function.calls.concurrent"
	BuildInfoName = "build_info"
)

// 指标名称（Prometheus 导出形式）
const (
	CounterNamePrometheus   = "function_calls_count"
	HistogramNamePrometheus = "function_calls_duration"
	GaugeNamePrometheus     = "function_calls_concurrent"
)

// BucketSuffix 直方图桶序列的后缀。
// 延迟查询作用于 function_calls_duration_bucket 序列。
const BucketSuffix = "_bucket"

// 指标描述
const (
	CounterDescription   = "Autometrics counter for tracking function calls"
	HistogramDescription = "Autometrics histogram for tracking function call duration"
	GaugeDescription     = "Autometrics gauge for tracking concurrent function calls"
	BuildInfoDescription = "Autometrics info metric for tracking software version and build details"
)

// 标签键
const (
	FunctionKey            = "function"
	ModuleKey              = "module"
	CallerKey              = "caller"
	ResultKey              = "result"
	OkKey                  = "ok"
	ErrorKey               = "error"
	ObjectiveNameKey       = "objective_name"
	ObjectivePercentileKey = "objective_percentile"
	ObjectiveLatencyKey    = "objective_latency_threshold"
	VersionKey             = "version"
	CommitKey              = "commit"
	BranchKey              = "branch"
	ServiceNameKey         = "service_name"
	LeKey                  = "le"
)

// CounterLabelKeys 计数器的标签键，顺序固定。
// 每次递增都使用同一组键和同一顺序，保证 Prometheus 不会产生分裂的序列。
var CounterLabelKeys = []string{
	FunctionKey,
	ModuleKey,
	CallerKey,
	ResultKey,
	OkKey,
	ErrorKey,
	ObjectiveNameKey,
	ObjectivePercentileKey,
}

// HistogramLabelKeys 直方图的标签键，顺序固定。
// 直方图比计数器昂贵得多（每个标签组合都要维护全部桶），
// 所以维度上只保留函数标识和延迟目标。
var HistogramLabelKeys = []string{
	FunctionKey,
	ModuleKey,
	ObjectiveNameKey,
	ObjectivePercentileKey,
	ObjectiveLatencyKey,
}

// GaugeLabelKeys 并发 gauge 的标签键。
// 并发度按函数维度统计，不按调用点。
var GaugeLabelKeys = []string{
	FunctionKey,
	ModuleKey,
}

// BuildInfoLabelKeys build_info 指标的标签键。
var BuildInfoLabelKeys = []string{
	VersionKey,
	CommitKey,
	BranchKey,
	ServiceNameKey,
}

// DefaultHistogramBuckets 默认直方图桶边界（秒）。
// 采用 OpenTelemetry 规范推荐的显式桶集合：
// https://github.com/open-telemetry/opentelemetry-specification/blob/main/specification/metrics/sdk.md#explicit-bucket-histogram-aggregation
var DefaultHistogramBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1.0, 2.5, 5.0, 7.5, 10.0,
}

// ToPrometheusName 将内部点分形式的指标名转换为 Prometheus 导出形式。
func ToPrometheusName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}
