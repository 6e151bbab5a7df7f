package tracker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/ceyewan/autometrics/schema"
	"github.com/ceyewan/autometrics/xerrors"
)

// ============================================================================
// OpenTelemetry 后端
// ============================================================================

// otelTracker 经 OTel SDK 聚合、由 Prometheus exporter 导出的跟踪器。
// 导出结果与 Prometheus 后端逐字节兼容：exporter 配置成不追加计数器
// 后缀、不输出 scope/target 信息，直方图桶通过 View 对齐。
type otelTracker struct {
	provider  *sdkmetric.MeterProvider
	counter   metric.Int64Counter
	histogram metric.Float64Histogram
	gauge     metric.Int64UpDownCounter
	buildInfo metric.Int64Gauge

	buildOnce sync.Once
}

// NewOTel 创建 OpenTelemetry 后端跟踪器。
// 指标经 OTel Prometheus exporter 落到配置的 Registerer 上。
func NewOTel(cfg *Config) (Tracker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.normalize()

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(cfg.Registerer),
		prometheus.WithoutCounterSuffixes(),
		prometheus.WithoutUnits(),
		prometheus.WithoutScopeInfo(),
		prometheus.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "tracker: create otel prometheus exporter")
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: schema.HistogramName},
			sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
				Boundaries: cfg.Buckets,
			}},
		)),
	)
	meter := provider.Meter("autometrics")

	t := &otelTracker{provider: provider}
	if t.counter, err = meter.Int64Counter(schema.CounterName,
		metric.WithDescription(schema.CounterDescription)); err != nil {
		return nil, xerrors.Wrap(err, "tracker: create counter")
	}
	if t.histogram, err = meter.Float64Histogram(schema.HistogramName,
		metric.WithDescription(schema.HistogramDescription)); err != nil {
		return nil, xerrors.Wrap(err, "tracker: create histogram")
	}
	if t.gauge, err = meter.Int64UpDownCounter(schema.GaugeName,
		metric.WithDescription(schema.GaugeDescription)); err != nil {
		return nil, xerrors.Wrap(err, "tracker: create gauge")
	}
	if t.buildInfo, err = meter.Int64Gauge(schema.BuildInfoName,
		metric.WithDescription(schema.BuildInfoDescription)); err != nil {
		return nil, xerrors.Wrap(err, "tracker: create build info gauge")
	}
	return t, nil
}

func (t *otelTracker) Start(ctx context.Context, gauge *schema.GaugeLabels) Call {
	if gauge != nil {
		t.gauge.Add(ctx, 1, metric.WithAttributes(attrsOf(schema.GaugeLabelKeys, gauge.Values())...))
	}
	return &otelCall{tracker: t, ctx: ctx, gauge: gauge, start: time.Now()}
}

func (t *otelTracker) SetBuildInfo(labels schema.BuildInfoLabels) {
	t.buildOnce.Do(func() {
		t.buildInfo.Record(context.Background(), 1,
			metric.WithAttributes(attrsOf(schema.BuildInfoLabelKeys, labels.Values())...))
	})
}

func (t *otelTracker) InitializeCounters(descs []schema.FunctionDescription) {
	ctx := context.Background()
	for i := range descs {
		t.counter.Add(ctx, 0,
			metric.WithAttributes(attrsOf(schema.CounterLabelKeys, descs[i].CounterLabels().Values())...))
	}
}

// otelCall 一次进行中的调用。
type otelCall struct {
	tracker *otelTracker
	ctx     context.Context
	gauge   *schema.GaugeLabels
	start   time.Time
	done    bool
}

func (c *otelCall) Finish(counter *schema.CounterLabels, histogram *schema.HistogramLabels) {
	if c.done {
		return
	}
	c.done = true

	elapsed := time.Since(c.start).Seconds()
	c.tracker.counter.Add(c.ctx, 1,
		metric.WithAttributes(attrsOf(schema.CounterLabelKeys, counter.Values())...))
	c.tracker.histogram.Record(c.ctx, elapsed,
		metric.WithAttributes(attrsOf(schema.HistogramLabelKeys, histogram.Values())...))

	// 并发 gauge 最后回退，样本先于回退落地
	c.releaseGauge()
}

func (c *otelCall) Drop() {
	if c.done {
		return
	}
	c.done = true
	c.releaseGauge()
}

func (c *otelCall) releaseGauge() {
	if c.gauge == nil {
		return
	}
	c.tracker.gauge.Add(c.ctx, -1,
		metric.WithAttributes(attrsOf(schema.GaugeLabelKeys, c.gauge.Values())...))
}

// attrsOf 把有序的标签键值对转换为 OTel 属性集。
// 键值数量由 schema 包保证一致。
func attrsOf(keys, values []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(keys))
	for i, k := range keys {
		attrs[i] = attribute.String(k, values[i])
	}
	return attrs
}
