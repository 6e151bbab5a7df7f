// Package objective 定义服务级目标（SLO）的不可变描述。
// 基于 Google SRE 的 SLO 概念构建：https://sre.google/sre-book/service-level-objectives/
//
// 架构说明：
//   - 属于 autometrics 分层架构中的 L0（Base）层，不依赖其他包
//   - Objective 的字符串形式是协议的一部分：同一字符串会原样出现在
//     指标标签值和规则生成器产出的查询中，两边必须逐字一致
//
// 快速开始：
//
//	var APISLO = objective.New("api").
//	    SuccessRate(objective.P99_9).
//	    Latency(objective.Latency250ms, objective.P99)
//
// 将 Objective 关联到被插桩的函数后，该函数的计数器会带上
// objective_name / objective_percentile 标签，直方图会额外带上
// objective_latency_threshold 标签。配合规则生成器产出的
// recording rules，这些标签会自动激活对应的 SLO 告警。
package objective

import "strings"

// Objective 描述一个命名的 SLO 目标。
// 零值不合法，必须通过 New 构造。两个可选维度都未设置的 Objective
// 是合法的，但不会为指标添加任何标签。
type Objective struct {
	name        string
	successRate Percentile
	latency     Latency
	latencyPct  Percentile
	hasLatency  bool
}

// New 创建一个指定名称的 Objective。
// 名称应该描述它覆盖的函数或函数组，例如覆盖所有 HTTP 处理函数的
// Objective 可以叫 "api"。
func New(name string) Objective {
	return Objective{name: name}
}

// SuccessRate 设置成功率目标。
// 表示该 Objective 覆盖的函数应该至少以该百分比的比例返回成功结果。
func (o Objective) SuccessRate(p Percentile) Objective {
	o.successRate = p
	return o
}

// Latency 设置延迟目标：至少 p 百分比的调用应该在 target 秒内完成。
//
// 注意：target 必须与直方图的某个桶边界完全一致，否则规则生成器产出的
// 告警永远不会触发（规则会将该值与直方图的 le 标签做等值比较）。
func (o Objective) Latency(target Latency, p Percentile) Objective {
	o.latency = target
	o.latencyPct = p
	o.hasLatency = true
	return o
}

// Name 返回 Objective 的名称。
func (o Objective) Name() string {
	return o.name
}

// SuccessRateTarget 返回成功率目标的百分位。
// 第二个返回值表示是否设置了成功率目标。
func (o Objective) SuccessRateTarget() (Percentile, bool) {
	return o.successRate, o.successRate != ""
}

// LatencyTarget 返回延迟目标（阈值与百分位）。
// 第三个返回值表示是否设置了延迟目标。
func (o Objective) LatencyTarget() (Latency, Percentile, bool) {
	return o.latency, o.latencyPct, o.hasLatency
}

// Percentile 表示需要满足目标的请求百分比。
// 字符串形式是规范形式，会原样出现在标签值中。
type Percentile string

const (
	// P90 90%
	P90 Percentile = "90"
	// P95 95%
	P95 Percentile = "95"
	// P99 99%
	P99 Percentile = "99"
	// P99_9 99.9%
	P99_9 Percentile = "99.9"
)

// CustomPercentile 创建一个自定义百分位。
//
// 注意：使用自定义百分位时，必须用 generate-sloth-file 命令重新生成
// 包含该百分位的规则文件，否则默认规则不会匹配这个值。
func CustomPercentile(s string) Percentile {
	return Percentile(s)
}

// String 返回百分位的规范字符串形式。
func (p Percentile) String() string {
	return string(p)
}

// RecordName 返回可以嵌入规则记录名的形式（"." 替换为 "_"）。
// 例如 "99.9" 会变为 "99_9"。这个变换只作用于记录名，标签选择器中
// 仍然使用原始字符串。
func (p Percentile) RecordName() string {
	return strings.ReplaceAll(string(p), ".", "_")
}

// Latency 表示延迟目标的阈值，以秒为单位的字符串。
// 字符串形式必须与直方图桶边界的文本形式完全一致。
type Latency string

const (
	// Latency5ms 5 毫秒
	Latency5ms Latency = "0.005"
	// Latency10ms 10 毫秒
	Latency10ms Latency = "0.01"
	// Latency25ms 25 毫秒
	Latency25ms Latency = "0.025"
	// Latency50ms 50 毫秒
	Latency50ms Latency = "0.05"
	// Latency75ms 75 毫秒
	Latency75ms Latency = "0.075"
	// Latency100ms 100 毫秒
	Latency100ms Latency = "0.1"
	// Latency250ms 250 毫秒
	Latency250ms Latency = "0.25"
	// Latency500ms 500 毫秒
	Latency500ms Latency = "0.5"
	// Latency750ms 750 毫秒
	Latency750ms Latency = "0.75"
	// Latency1s 1 秒
	Latency1s Latency = "1"
	// Latency2500ms 2.5 秒
	Latency2500ms Latency = "2.5"
	// Latency5s 5 秒
	Latency5s Latency = "5"
	// Latency7500ms 7.5 秒
	Latency7500ms Latency = "7.5"
	// Latency10s 10 秒
	Latency10s Latency = "10"
)

// CustomLatency 创建一个自定义延迟阈值（秒）。
// 必须保证该值与某个直方图桶边界一致，见 Objective.Latency 的说明。
func CustomLatency(s string) Latency {
	return Latency(s)
}

// String 返回延迟阈值的规范字符串形式。
func (l Latency) String() string {
	return string(l)
}
