package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/autometrics/schema"
	"github.com/ceyewan/autometrics/xerrors"
)

// ============================================================================
// Prometheus 后端
// ============================================================================

// promTracker 基于 prometheus/client_golang 原生指标类型的跟踪器。
type promTracker struct {
	counter   *prometheus.CounterVec
	histogram *prometheus.HistogramVec
	gauge     *prometheus.GaugeVec
	buildInfo *prometheus.GaugeVec

	exemplar  ExemplarExtractor
	logger    *logWrapper
	buildOnce sync.Once
}

// NewPrometheus 创建 Prometheus 后端跟踪器并把指标注册到配置的 Registerer。
func NewPrometheus(cfg *Config) (Tracker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.normalize()

	t := &promTracker{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: schema.CounterNamePrometheus,
			Help: schema.CounterDescription,
		}, schema.CounterLabelKeys),
		histogram: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    schema.HistogramNamePrometheus,
			Help:    schema.HistogramDescription,
			Buckets: cfg.Buckets,
		}, schema.HistogramLabelKeys),
		gauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: schema.GaugeNamePrometheus,
			Help: schema.GaugeDescription,
		}, schema.GaugeLabelKeys),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: schema.BuildInfoName,
			Help: schema.BuildInfoDescription,
		}, schema.BuildInfoLabelKeys),
		exemplar: cfg.Exemplar,
		logger:   &logWrapper{logger: cfg.Logger},
	}

	for _, c := range []prometheus.Collector{t.counter, t.histogram, t.gauge, t.buildInfo} {
		if err := cfg.Registerer.Register(c); err != nil {
			return nil, xerrors.Wrap(err, "tracker: register collector")
		}
	}
	return t, nil
}

func (t *promTracker) Start(ctx context.Context, gauge *schema.GaugeLabels) Call {
	if gauge != nil {
		if g, err := t.gauge.GetMetricWithLabelValues(gauge.Values()...); err != nil {
			t.logger.recordError(schema.GaugeName, err)
			gauge = nil
		} else {
			g.Inc()
		}
	}
	return &promCall{tracker: t, ctx: ctx, gauge: gauge, start: time.Now()}
}

func (t *promTracker) SetBuildInfo(labels schema.BuildInfoLabels) {
	t.buildOnce.Do(func() {
		g, err := t.buildInfo.GetMetricWithLabelValues(labels.Values()...)
		if err != nil {
			t.logger.recordError(schema.BuildInfoName, err)
			return
		}
		g.Set(1)
	})
}

func (t *promTracker) InitializeCounters(descs []schema.FunctionDescription) {
	for i := range descs {
		c, err := t.counter.GetMetricWithLabelValues(descs[i].CounterLabels().Values()...)
		if err != nil {
			t.logger.recordError(schema.CounterName, err)
			continue
		}
		c.Add(0)
	}
}

// promCall 一次进行中的调用。
type promCall struct {
	tracker *promTracker
	ctx     context.Context
	gauge   *schema.GaugeLabels
	start   time.Time
	done    bool
}

func (c *promCall) Finish(counter *schema.CounterLabels, histogram *schema.HistogramLabels) {
	if c.done {
		return
	}
	c.done = true

	elapsed := time.Since(c.start).Seconds()

	var exLabels prometheus.Labels
	if c.tracker.exemplar != nil {
		exLabels = c.tracker.exemplar(c.ctx)
	}

	if m, err := c.tracker.counter.GetMetricWithLabelValues(counter.Values()...); err != nil {
		c.tracker.logger.recordError(schema.CounterName, err)
	} else if adder, ok := m.(prometheus.ExemplarAdder); ok && exLabels != nil {
		adder.AddWithExemplar(1, exLabels)
	} else {
		m.Inc()
	}

	if m, err := c.tracker.histogram.GetMetricWithLabelValues(histogram.Values()...); err != nil {
		c.tracker.logger.recordError(schema.HistogramName, err)
	} else if observer, ok := m.(prometheus.ExemplarObserver); ok && exLabels != nil {
		observer.ObserveWithExemplar(elapsed, exLabels)
	} else {
		m.Observe(elapsed)
	}

	// 并发 gauge 最后回退，样本先于回退落地
	c.releaseGauge()
}

func (c *promCall) Drop() {
	if c.done {
		return
	}
	c.done = true
	c.releaseGauge()
}

func (c *promCall) releaseGauge() {
	if c.gauge == nil {
		return
	}
	if g, err := c.tracker.gauge.GetMetricWithLabelValues(c.gauge.Values()...); err != nil {
		c.tracker.logger.recordError(schema.GaugeName, err)
	} else {
		g.Dec()
	}
}
