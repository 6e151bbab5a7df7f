package autometrics

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/ceyewan/autometrics/schema"
	"github.com/ceyewan/autometrics/tracker"
	"github.com/ceyewan/autometrics/xerrors"
)

// Backend 指标后端类型。
type Backend string

const (
	// BackendPrometheus 直接使用 prometheus/client_golang（默认）
	BackendPrometheus Backend = "prometheus"
	// BackendOTel 经 OpenTelemetry SDK 聚合后导出
	BackendOTel Backend = "otel"
	// BackendNoop 禁用指标
	BackendNoop Backend = "noop"
)

// Config autometrics 全局配置。
type Config struct {
	// ServiceName 服务名，空值时依次回退到 AUTOMETRICS_SERVICE_NAME、
	// OTEL_SERVICE_NAME 环境变量和生成器推导的模块名
	ServiceName string

	// Version / Commit / Branch 构建元数据，写入 build_info 指标
	Version string
	Commit  string
	Branch  string

	// Backend 指标后端，空值等同于 BackendPrometheus
	Backend Backend

	// Registry 指标注册目标，nil 时创建独立的 Registry
	Registry *prometheus.Registry

	// HistogramBuckets 延迟直方图桶边界（秒），
	// nil 时使用 schema.DefaultHistogramBuckets
	HistogramBuckets []float64

	// InitToZero 初始化时为每个已登记函数写入零值计数器样本，
	// 让函数清单在首次调用前就可见
	InitToZero bool
}

// Settings 一次成功初始化的结果。
type Settings struct {
	serviceName string
	registry    *prometheus.Registry
	tracker     tracker.Tracker
	exemplars   bool
	logger      *slog.Logger
}

// ServiceName 返回解析后的服务名。
func (s *Settings) ServiceName() string { return s.serviceName }

// Registry 返回指标注册到的 Registry。
func (s *Settings) Registry() *prometheus.Registry { return s.registry }

// ============================================================================
// 全局状态
// ============================================================================

var (
	initMu sync.Mutex
	active atomic.Pointer[Settings]

	noop = tracker.NewNoop()
)

// activeTracker 返回当前生效的跟踪器，未初始化时为 noop。
func activeTracker() tracker.Tracker {
	if s := active.Load(); s != nil {
		return s.tracker
	}
	return noop
}

// reset 清空全局状态，仅测试使用。
func reset() {
	initMu.Lock()
	defer initMu.Unlock()
	active.Store(nil)
}

// Init 初始化 autometrics，每个进程最多调用一次。
// 第二次调用返回 ErrAlreadyInitialized。
func Init(cfg *Config, opts ...Option) (*Settings, error) {
	initMu.Lock()
	defer initMu.Unlock()

	if active.Load() != nil {
		return nil, ErrAlreadyInitialized
	}
	if cfg == nil {
		cfg = &Config{}
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.extractors) > 1 {
		return nil, ErrExemplarConflict
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	var extractor tracker.ExemplarExtractor
	if len(o.extractors) == 1 {
		extractor = o.extractors[0]
	}

	trackerCfg := &tracker.Config{
		Registerer: registry,
		Buckets:    cfg.HistogramBuckets,
		Exemplar:   extractor,
		Logger:     o.logger,
	}

	var (
		tr  tracker.Tracker
		err error
	)
	switch cfg.Backend {
	case BackendPrometheus, "":
		tr, err = tracker.NewPrometheus(trackerCfg)
	case BackendOTel:
		tr, err = tracker.NewOTel(trackerCfg)
	case BackendNoop:
		tr = noop
	default:
		return nil, fmt.Errorf("autometrics: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, xerrors.Wrap(err, "autometrics: create tracker")
	}

	serviceName := resolveServiceName(cfg.ServiceName)

	tr.SetBuildInfo(schema.BuildInfoLabels{
		Version:     cfg.Version,
		Commit:      cfg.Commit,
		Branch:      cfg.Branch,
		ServiceName: serviceName,
	})
	if cfg.InitToZero {
		tr.InitializeCounters(registeredDescriptions())
	}

	s := &Settings{
		serviceName: serviceName,
		registry:    registry,
		tracker:     tr,
		exemplars:   extractor != nil,
		logger:      o.logger,
	}
	active.Store(s)

	o.logger.Info("autometrics initialized",
		"service_name", serviceName,
		"backend", string(cfg.Backend),
		"exemplars", s.exemplars,
	)
	return s, nil
}

// resolveServiceName 按优先级解析服务名：
// 显式配置 > AUTOMETRICS_SERVICE_NAME > OTEL_SERVICE_NAME > 生成器推导的模块名。
func resolveServiceName(explicit string) string {
	if explicit != "" {
		return explicit
	}
	v := viper.New()
	_ = v.BindEnv("service_name", "AUTOMETRICS_SERVICE_NAME", "OTEL_SERVICE_NAME")
	if name := v.GetString("service_name"); name != "" {
		return name
	}
	return buildTimeServiceName()
}
