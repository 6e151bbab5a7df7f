package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/ceyewan/autometrics"
	"github.com/ceyewan/autometrics/schema"
	"github.com/ceyewan/autometrics/xerrors"
)

var testRegistry = prometheus.NewRegistry()

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if _, err := autometrics.Init(&autometrics.Config{
		Registry:    testRegistry,
		ServiceName: "middleware-test",
	}); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func counterSamples(t *testing.T) []*dto.Metric {
	t.Helper()
	families, err := testRegistry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == schema.CounterNamePrometheus {
			return mf.GetMetric()
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

func findByLabels(metrics []*dto.Metric, function, result string) *dto.Metric {
	for _, m := range metrics {
		labels := labelMap(m)
		if labels["function"] == function && labels["result"] == result {
			return m
		}
	}
	return nil
}

func TestGinMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(Gin("api"))
	router.GET("/users/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/boom", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "boom")
	})

	for _, path := range []string{"/users/42", "/boom"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	samples := counterSamples(t)

	ok := findByLabels(samples, "GET /users/:id", "ok")
	require.NotNil(t, ok)
	assert.Equal(t, float64(1), ok.GetCounter().GetValue())
	assert.Equal(t, "api", labelMap(ok)["module"])

	// 5xx 响应记为 error
	errSample := findByLabels(samples, "GET /boom", "error")
	require.NotNil(t, errSample)
	assert.Equal(t, float64(1), errSample.GetCounter().GetValue())
}

func TestUnaryServerInterceptor(t *testing.T) {
	interceptor := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/helloworld.Greeter/SayHello"}

	_, err := interceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return "hi", nil })
	require.NoError(t, err)

	_, err = interceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) { return nil, xerrors.New("backend down") })
	require.Error(t, err)

	samples := counterSamples(t)
	ok := findByLabels(samples, "Greeter.SayHello", "ok")
	require.NotNil(t, ok)
	assert.Equal(t, "helloworld", labelMap(ok)["module"])
	require.NotNil(t, findByLabels(samples, "Greeter.SayHello", "error"))
}

func TestInterceptorPropagatesCaller(t *testing.T) {
	interceptor := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/helloworld.Greeter/Lookup"}

	nested := &autometrics.Func{
		Name: "fetchUser", Module: "app",
		StackName: "github.com/ceyewan/autometrics/middleware.fetchUser",
	}

	_, err := interceptor(context.Background(), nil, info,
		func(ctx context.Context, req any) (any, error) {
			// 模拟 handler 内部调用被注解的函数
			var innerErr error
			inner := autometrics.PreInstrument(ctx, nested)
			autometrics.Instrument(inner, &innerErr)
			return nil, nil
		})
	require.NoError(t, err)

	samples := counterSamples(t)
	sample := findByLabels(samples, "fetchUser", "ok")
	require.NotNil(t, sample)
	assert.Equal(t, "Greeter.Lookup", labelMap(sample)["caller"])
}

func TestSplitFullMethod(t *testing.T) {
	tests := []struct {
		fullMethod string
		name       string
		module     string
	}{
		{"/helloworld.Greeter/SayHello", "Greeter.SayHello", "helloworld"},
		{"/a.b.c.Greeter/SayHello", "Greeter.SayHello", "a.b.c"},
		{"/Greeter/SayHello", "Greeter.SayHello", ""},
		{"weird", "weird", ""},
	}
	for _, tt := range tests {
		name, module := splitFullMethod(tt.fullMethod)
		assert.Equal(t, tt.name, name, tt.fullMethod)
		assert.Equal(t, tt.module, module, tt.fullMethod)
	}
}
