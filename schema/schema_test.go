package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ceyewan/autometrics/objective"
)

func TestToPrometheusName(t *testing.T) {
	assert.Equal(t, CounterNamePrometheus, ToPrometheusName(CounterName))
	assert.Equal(t, HistogramNamePrometheus, ToPrometheusName(HistogramName))
	assert.Equal(t, GaugeNamePrometheus, ToPrometheusName(GaugeName))
	assert.Equal(t, "build_info", ToPrometheusName(BuildInfoName))
}

func TestCounterLabelValues(t *testing.T) {
	obj := objective.New("api").SuccessRate(objective.P99)

	tests := []struct {
		name   string
		labels CounterLabels
		want   []string
	}{
		{
			name:   "未分类的顶层调用",
			labels: CounterLabels{Function: "Get", Module: "cache"},
			want:   []string{"Get", "cache", "", "", "", "", "", ""},
		},
		{
			name: "ok 结果只填 ok 列",
			labels: CounterLabels{
				Function: "Get", Module: "cache", Caller: "Handler",
				Result: ResultLabels{Kind: KindOk, Detail: "Hit"},
			},
			want: []string{"Get", "cache", "Handler", "ok", "Hit", "", "", ""},
		},
		{
			name: "error 结果只填 error 列",
			labels: CounterLabels{
				Function: "Get", Module: "cache",
				Result: ResultLabels{Kind: KindError, Detail: "Timeout"},
			},
			want: []string{"Get", "cache", "", "error", "", "Timeout", "", ""},
		},
		{
			name: "成功率目标体现在计数器标签上",
			labels: CounterLabels{
				Function: "Get", Module: "cache",
				Result:    ResultLabels{Kind: KindOk},
				Objective: &obj,
			},
			want: []string{"Get", "cache", "", "ok", "", "", "api", "99"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.labels.Values()
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(CounterLabelKeys))
		})
	}
}

func TestCounterLabelsIgnoreLatencyOnlyObjective(t *testing.T) {
	// 只声明延迟维度的目标不应出现在计数器标签上
	obj := objective.New("api").Latency(objective.Latency250ms, objective.P99)
	labels := CounterLabels{Function: "Get", Module: "cache", Objective: &obj}
	assert.Equal(t, []string{"Get", "cache", "", "", "", "", "", ""}, labels.Values())
}

func TestHistogramLabelValues(t *testing.T) {
	obj := objective.New("api").SuccessRate(objective.P95).Latency(objective.Latency100ms, objective.P99)
	labels := HistogramLabels{Function: "Get", Module: "cache", Objective: &obj}

	got := labels.Values()
	assert.Equal(t, []string{"Get", "cache", "api", "99", "0.1"}, got)
	assert.Len(t, got, len(HistogramLabelKeys))

	// 只声明成功率维度的目标不应出现在直方图标签上
	successOnly := objective.New("api").SuccessRate(objective.P95)
	labels = HistogramLabels{Function: "Get", Module: "cache", Objective: &successOnly}
	assert.Equal(t, []string{"Get", "cache", "", "", ""}, labels.Values())
}

func TestGaugeAndBuildInfoLabelValues(t *testing.T) {
	gauge := GaugeLabels{Function: "Get", Module: "cache"}
	assert.Equal(t, []string{"Get", "cache"}, gauge.Values())
	assert.Len(t, gauge.Values(), len(GaugeLabelKeys))

	info := BuildInfoLabels{Version: "1.2.3", Commit: "abc123", Branch: "main", ServiceName: "web"}
	assert.Equal(t, []string{"1.2.3", "abc123", "main", "web"}, info.Values())
	assert.Len(t, info.Values(), len(BuildInfoLabelKeys))
}

func TestFunctionDescriptionCounterLabels(t *testing.T) {
	obj := objective.New("api").SuccessRate(objective.P99)
	desc := FunctionDescription{Function: "Get", Module: "cache", Objective: &obj}

	// 零值样本：除函数标识和目标外全部留空
	assert.Equal(t, []string{"Get", "cache", "", "", "", "", "api", "99"}, desc.CounterLabels().Values())
}
