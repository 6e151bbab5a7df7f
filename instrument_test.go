package autometrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/autometrics/schema"
	"github.com/ceyewan/autometrics/xerrors"
)

// ============================================================================
// 测试用的"生成代码"：形态与 cmd/autometrics instrument 的注入结果一致
// ============================================================================

var (
	outerFunc = &Func{
		Name: "outer", Module: "app",
		StackName: "github.com/ceyewan/autometrics.outer",
	}
	innerFunc = &Func{
		Name: "inner", Module: "app",
		StackName: "github.com/ceyewan/autometrics.inner",
	}
	panickyFunc = &Func{
		Name: "panicky", Module: "app",
		StackName:        "github.com/ceyewan/autometrics.panicky",
		TrackConcurrency: true,
	}
	pingFunc = &Func{
		Name: "ping", Module: "app",
		StackName: "github.com/ceyewan/autometrics.ping",
	}
)

func outer(ctx context.Context) (err error) {
	ctx = PreInstrument(ctx, outerFunc)
	defer Instrument(ctx, &err)
	return inner(ctx)
}

var innerErr error

func inner(ctx context.Context) (err error) {
	ctx = PreInstrument(ctx, innerFunc)
	defer Instrument(ctx, &err)
	return innerErr
}

func panicky(ctx context.Context) (err error) {
	ctx = PreInstrument(ctx, panickyFunc)
	defer Instrument(ctx, &err)
	panic("boom")
}

func ping(ctx context.Context, status int) (code int, err error) {
	ctx = PreInstrument(ctx, pingFunc, WithOkIf(func() bool { return code < 500 }))
	defer Instrument(ctx, &err, &code)
	code = status
	return code, nil
}

// ============================================================================
// 辅助
// ============================================================================

func setupTest(t *testing.T) *prometheus.Registry {
	t.Helper()
	reset()
	t.Cleanup(reset)

	registry := prometheus.NewRegistry()
	_, err := Init(&Config{Registry: registry, ServiceName: "test"})
	require.NoError(t, err)
	return registry
}

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labelMap(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

// findSample 按 function 标签找样本。
func findSample(mf *dto.MetricFamily, function string) *dto.Metric {
	if mf == nil {
		return nil
	}
	for _, m := range mf.GetMetric() {
		if labelMap(m)["function"] == function {
			return m
		}
	}
	return nil
}

// ============================================================================
// 用例
// ============================================================================

func TestInstrumentRecordsCallChain(t *testing.T) {
	registry := setupTest(t)
	innerErr = nil

	require.NoError(t, outer(context.Background()))

	counter := gatherFamily(t, registry, schema.CounterNamePrometheus)
	require.NotNil(t, counter)

	outerSample := findSample(counter, "outer")
	require.NotNil(t, outerSample)
	assert.Equal(t, float64(1), outerSample.GetCounter().GetValue())
	assert.Equal(t, "", labelMap(outerSample)["caller"])
	assert.Equal(t, "ok", labelMap(outerSample)["result"])

	// 被调方通过 context 看到最近的被插桩祖先
	innerSample := findSample(counter, "inner")
	require.NotNil(t, innerSample)
	assert.Equal(t, "outer", labelMap(innerSample)["caller"])

	histogram := gatherFamily(t, registry, schema.HistogramNamePrometheus)
	require.NotNil(t, histogram)
	require.NotNil(t, findSample(histogram, "outer"))
	assert.Equal(t, uint64(1), findSample(histogram, "inner").GetHistogram().GetSampleCount())
}

func TestInstrumentClassifiesError(t *testing.T) {
	registry := setupTest(t)
	innerErr = xerrors.New("backend unavailable")
	defer func() { innerErr = nil }()

	require.Error(t, inner(context.Background()))

	counter := gatherFamily(t, registry, schema.CounterNamePrometheus)
	sample := findSample(counter, "inner")
	require.NotNil(t, sample)
	assert.Equal(t, "error", labelMap(sample)["result"])
}

func TestInstrumentOkIfPredicate(t *testing.T) {
	registry := setupTest(t)

	_, err := ping(context.Background(), 200)
	require.NoError(t, err)
	_, err = ping(context.Background(), 503)
	require.NoError(t, err)

	counter := gatherFamily(t, registry, schema.CounterNamePrometheus)
	require.NotNil(t, counter)

	var okCount, errCount float64
	for _, m := range counter.GetMetric() {
		labels := labelMap(m)
		if labels["function"] != "ping" {
			continue
		}
		switch labels["result"] {
		case "ok":
			okCount = m.GetCounter().GetValue()
		case "error":
			errCount = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), okCount)
	assert.Equal(t, float64(1), errCount)
}

func TestInstrumentPanicBalancesGauge(t *testing.T) {
	registry := setupTest(t)

	assert.PanicsWithValue(t, "boom", func() {
		_ = panicky(context.Background())
	})

	// panic 展开只回退 gauge，不产生计数和延迟样本
	gauge := gatherFamily(t, registry, schema.GaugeNamePrometheus)
	require.NotNil(t, gauge)
	sample := findSample(gauge, "panicky")
	require.NotNil(t, sample)
	assert.Equal(t, float64(0), sample.GetGauge().GetValue())

	counter := gatherFamily(t, registry, schema.CounterNamePrometheus)
	assert.Nil(t, findSample(counter, "panicky"))
}

func TestInstrumentBeforeInit(t *testing.T) {
	reset()
	t.Cleanup(reset)
	innerErr = nil

	// 未初始化时注入的代码是无害的空操作
	require.NoError(t, outer(context.Background()))
}

func TestPreInstrumentNilFunc(t *testing.T) {
	ctx := PreInstrument(nil, nil)
	require.NotNil(t, ctx)
	Instrument(ctx, nil)
	Instrument(nil, nil)
}
