package gen

import (
	"fmt"
	"strings"

	"github.com/ceyewan/autometrics/schema"
)

// DefaultPrometheusURL 文档链接指向的默认 Prometheus 地址，
// 生成时可用 PROMETHEUS_URL 环境变量覆盖。
const DefaultPrometheusURL = "http://localhost:9090"

// docMarker 文档节的起始行，重新生成时据此剥离旧文档节。
const docMarker = "// # Autometrics"

// docSection 生成追加到函数文档注释末尾的指标链接节。
func docSection(baseURL, function string) []string {
	bucket := schema.HistogramNamePrometheus + schema.BucketSuffix

	requestRate := makePrometheusURL(baseURL,
		requestRateQuery(schema.FunctionKey, function),
		fmt.Sprintf("Rate of calls to the `%s` function per second, averaged over 5 minute windows", function))
	errorRatio := makePrometheusURL(baseURL,
		errorRatioQuery(schema.FunctionKey, function),
		fmt.Sprintf("Percentage of calls to the `%s` function that return errors, averaged over 5 minute windows", function))
	latency := makePrometheusURL(baseURL,
		latencyQuery(bucket, function),
		fmt.Sprintf("95th and 99th percentile latencies for the `%s` function", function))
	concurrent := makePrometheusURL(baseURL,
		concurrentCallsQuery(function),
		fmt.Sprintf("Concurrent calls to the `%s` function", function))

	calleeRequestRate := makePrometheusURL(baseURL,
		requestRateQuery(schema.CallerKey, function),
		fmt.Sprintf("Rate of calls to functions called by `%s` per second, averaged over 5 minute windows", function))
	calleeErrorRatio := makePrometheusURL(baseURL,
		errorRatioQuery(schema.CallerKey, function),
		fmt.Sprintf("Percentage of calls to functions called by `%s` that return errors, averaged over 5 minute windows", function))

	return []string{
		"//",
		docMarker,
		"//",
		fmt.Sprintf("// View the live metrics for the %s function:", function),
		fmt.Sprintf("//   - [Request Rate](%s)", requestRate),
		fmt.Sprintf("//   - [Error Ratio](%s)", errorRatio),
		fmt.Sprintf("//   - [Latency (95th and 99th percentiles)](%s)", latency),
		fmt.Sprintf("//   - [Concurrent Calls](%s)", concurrent),
		"//",
		fmt.Sprintf("// Or, dig into the metrics of functions called by %s:", function),
		fmt.Sprintf("//   - [Request Rate](%s)", calleeRequestRate),
		fmt.Sprintf("//   - [Error Ratio](%s)", calleeErrorRatio),
	}
}

func requestRateQuery(labelKey, labelValue string) string {
	return fmt.Sprintf("sum by (function, module) (rate(%s{%s=%q}[5m]))",
		schema.CounterNamePrometheus, labelKey, labelValue)
}

func errorRatioQuery(labelKey, labelValue string) string {
	return fmt.Sprintf("sum by (function, module) (rate(%s{%s=%q,%s=%q}[5m])) /\n%s",
		schema.CounterNamePrometheus, labelKey, labelValue, schema.ResultKey, "error",
		requestRateQuery(labelKey, labelValue))
}

func latencyQuery(bucket, function string) string {
	latency := fmt.Sprintf("sum by (le, function, module) (rate(%s{%s=%q}[5m]))",
		bucket, schema.FunctionKey, function)
	return fmt.Sprintf("histogram_quantile(0.99, %s) or\nhistogram_quantile(0.95, %s)", latency, latency)
}

func concurrentCallsQuery(function string) string {
	return fmt.Sprintf("sum by (function, module) %s{%s=%q}",
		schema.GaugeNamePrometheus, schema.FunctionKey, function)
}

// makePrometheusURL 把查询和说明包成直达 graph 页的链接。
func makePrometheusURL(base, query, comment string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "graph?g0.expr=" + percentEncode("# "+comment+"\n\n"+query) + "&g0.tab=0"
}

// percentEncode 对所有非字母数字字节做百分号编码。
// 比标准的 URL 查询编码保守，空格等字符进 Prometheus 输入框后
// 不会被二次解释。
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
