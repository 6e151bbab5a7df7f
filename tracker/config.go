package tracker

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/autometrics/schema"
)

// Config 跟踪器配置。
type Config struct {
	// Registerer 指标注册目标，nil 时使用 prometheus.DefaultRegisterer
	Registerer prometheus.Registerer

	// Buckets 延迟直方图桶边界（秒），nil 时使用 schema.DefaultHistogramBuckets
	Buckets []float64

	// Exemplar exemplar 提取器，nil 时不附带 exemplar。
	// 仅 Prometheus 后端使用；OTel 后端由 SDK 自行从 context 采样。
	Exemplar ExemplarExtractor

	// Logger 记录后端内部错误，nil 时使用 slog.Default()
	Logger *slog.Logger
}

// logWrapper 统一后端内部错误的日志出口。
// 指标记录失败不应该影响业务调用，这里只告警不上抛。
type logWrapper struct {
	logger *slog.Logger
}

func (l *logWrapper) recordError(metric string, err error) {
	l.logger.Warn("autometrics: failed to record metric", "metric", metric, "error", err)
}

// normalize 填充配置缺省值。
func (c *Config) normalize() {
	if c.Registerer == nil {
		c.Registerer = prometheus.DefaultRegisterer
	}
	if c.Buckets == nil {
		c.Buckets = schema.DefaultHistogramBuckets
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
