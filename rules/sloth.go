// Package rules 生成 Sloth（https://sloth.dev）格式的 SLO 定义文件。
// Sloth 据此展开出 Prometheus 的 recording / alerting 规则。
//
// 查询语句里的指标名和标签名全部取自 schema 包的常量，与运行时导出的
// 序列严格一致：被插桩代码使用的 Objective 百分位必须出现在生成时的
// 百分位列表里，对应的告警才会生效。
package rules

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ceyewan/autometrics/objective"
	"github.com/ceyewan/autometrics/schema"
)

// DefaultObjectives 默认生成的目标百分位。
var DefaultObjectives = []string{"90", "95", "99", "99.9"}

// DefaultService Sloth 文档的默认 service 字段。
const DefaultService = "autometrics"

// equalityCheckLabel 延迟查询用 label_join 做标签相等性检查时使用的
// 临时标签名。objective_latency_threshold 与 le 相等的桶恰好是
// "在目标延迟之内完成" 的那一桶。
const equalityCheckLabel = "autometrics_check_label_equality"

// Document Sloth prometheus/v1 文档结构。
type Document struct {
	Version string `yaml:"version"`
	Service string `yaml:"service"`
	SLOs    []SLO  `yaml:"slos"`
}

type SLO struct {
	Name        string            `yaml:"name"`
	Objective   float64           `yaml:"objective"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	SLI         SLI               `yaml:"sli"`
	Alerting    Alerting          `yaml:"alerting"`
}

type SLI struct {
	Events Events `yaml:"events"`
}

type Events struct {
	ErrorQuery string `yaml:"error_query"`
	TotalQuery string `yaml:"total_query"`
}

type Alerting struct {
	Name        string            `yaml:"name"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	PageAlert   Alert             `yaml:"page_alert"`
	TicketAlert Alert             `yaml:"ticket_alert"`
}

type Alert struct {
	Labels map[string]string `yaml:"labels,omitempty"`
}

// Generate 为每个目标百分位生成一个成功率 SLO 和一个延迟 SLO，
// 返回完整的 Sloth YAML 文档。
func Generate(objectives []string) ([]byte, error) {
	if len(objectives) == 0 {
		objectives = DefaultObjectives
	}

	doc := Document{
		Version: "prometheus/v1",
		Service: DefaultService,
	}
	for _, percentile := range objectives {
		value, err := strconv.ParseFloat(percentile, 64)
		if err != nil || value <= 0 || value >= 100 {
			return nil, fmt.Errorf("rules: invalid objective percentile %q", percentile)
		}
		doc.SLOs = append(doc.SLOs, successRateSLO(percentile, value))
	}
	for _, percentile := range objectives {
		value, _ := strconv.ParseFloat(percentile, 64)
		doc.SLOs = append(doc.SLOs, latencySLO(percentile, value))
	}

	return yaml.Marshal(doc)
}

func successRateSLO(percentile string, value float64) SLO {
	selector := fmt.Sprintf("%s=%q", schema.ObjectivePercentileKey, percentile)
	return SLO{
		Name:        "success-rate-" + objective.CustomPercentile(percentile).RecordName(),
		Objective:   value,
		Description: "Common SLO based on function success rates",
		Labels:      map[string]string{schema.ObjectivePercentileKey: percentile},
		SLI: SLI{Events: Events{
			ErrorQuery: fmt.Sprintf("sum(rate(%s{%s,%s=%q}[{{.window}}]))",
				schema.CounterNamePrometheus, selector, schema.ResultKey, "error"),
			TotalQuery: fmt.Sprintf("sum(rate(%s{%s}[{{.window}}]))",
				schema.CounterNamePrometheus, selector),
		}},
		Alerting: Alerting{
			Name:        fmt.Sprintf("High Error Rate SLO - %s%%", percentile),
			Labels:      map[string]string{"category": "success-rate"},
			PageAlert:   Alert{Labels: map[string]string{"severity": "page"}},
			TicketAlert: Alert{Labels: map[string]string{"severity": "ticket"}},
		},
	}
}

func latencySLO(percentile string, value float64) SLO {
	bucketSeries := schema.HistogramNamePrometheus + schema.BucketSuffix
	selector := fmt.Sprintf("%s=%q", schema.ObjectivePercentileKey, percentile)
	rate := fmt.Sprintf("rate(%s{%s}[{{.window}}])", bucketSeries, selector)

	// 目标延迟之内完成的调用落在 le == objective_latency_threshold 的桶里。
	// Prometheus 不支持直接比较两个标签的值，这里用 label_join 把两个
	// 标签分别抄到同一个临时标签上，再用 and 取相等的序列。
	withinTarget := fmt.Sprintf(
		"(sum(\n  label_join(%s, %q, \"\", %q)\n  and\n  label_join(%s, %q, \"\", %q)\n))",
		rate, equalityCheckLabel, schema.ObjectiveLatencyKey,
		rate, equalityCheckLabel, schema.LeKey,
	)

	return SLO{
		Name:        "latency-" + objective.CustomPercentile(percentile).RecordName(),
		Objective:   value,
		Description: "Common SLO based on function latency",
		Labels:      map[string]string{schema.ObjectivePercentileKey: percentile},
		SLI: SLI{Events: Events{
			ErrorQuery: fmt.Sprintf("sum(%s)\n-\n%s", rate, withinTarget),
			TotalQuery: fmt.Sprintf("sum(%s)", rate),
		}},
		Alerting: Alerting{
			Name:        fmt.Sprintf("High Latency SLO - %s%%", percentile),
			Labels:      map[string]string{"category": "latency"},
			PageAlert:   Alert{Labels: map[string]string{"severity": "page"}},
			TicketAlert: Alert{Labels: map[string]string{"severity": "ticket"}},
		},
	}
}
