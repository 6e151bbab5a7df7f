package autometrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler 返回指标暴露端点的 http.Handler。
//
// 启用 exemplar 时允许协商 OpenMetrics 格式
// （application/openmetrics-text; version=1.0.0; charset=utf-8），
// 否则输出经典文本格式（text/plain; version=0.0.4）。exemplar 只在
// OpenMetrics 格式下出现。编码失败返回 500 和错误正文。
func (s *Settings) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: s.exemplars,
		ErrorHandling:     promhttp.HTTPErrorOnError,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	})
}

// Handler 包级入口，使用全局初始化的 Settings。
// 未初始化时所有请求返回 503。
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := active.Load()
		if s == nil {
			http.Error(w, ErrNotInitialized.Error(), http.StatusServiceUnavailable)
			return
		}
		s.Handler().ServeHTTP(w, r)
	})
}

// Serve 在 addr 上启动一个只提供指标端点的 HTTP 服务器并阻塞。
// path 为空时使用 /metrics。
func (s *Settings) Serve(addr, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler())

	s.logger.Info("starting autometrics exposition server", "addr", addr, "path", path)
	server := &http.Server{Addr: addr, Handler: mux}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("autometrics exposition server error", "error", err)
		return err
	}
	return nil
}
