package autometrics

import "github.com/ceyewan/autometrics/xerrors"

var (
	// ErrAlreadyInitialized Init 在同一进程内被调用了第二次
	ErrAlreadyInitialized = xerrors.New("autometrics: already initialized")

	// ErrExemplarConflict 配置了多个 exemplar 提取器
	ErrExemplarConflict = xerrors.New("autometrics: multiple exemplar extractors configured")

	// ErrNotInitialized 在 Init 之前请求了需要初始化的能力
	ErrNotInitialized = xerrors.New("autometrics: not initialized")
)
