package autometrics

import (
	"sync"

	"github.com/ceyewan/autometrics/objective"
	"github.com/ceyewan/autometrics/schema"
)

// Func 一个被插桩函数的构建期描述。
// 实例由代码生成器写进每个包的 autometrics.gen.go，在 init() 中登记；
// 运行时只读。
type Func struct {
	// Name 函数的本地名称，方法为 Type.Method 形式
	Name string

	// Module 相对模块根的点分包路径
	Module string

	// StackName 运行时栈帧中的完整符号名（importPath.FuncName），
	// 用于无 context 调用链的调用方回退查找
	StackName string

	// Objective 关联的 SLO 目标，可以为 nil
	Objective *objective.Objective

	// TrackConcurrency 是否维护并发 gauge
	TrackConcurrency bool
}

// inventory 进程级的被插桩函数清单。
// 写入全部发生在包 init() 阶段，运行时只有读。
var inventory = struct {
	mu               sync.RWMutex
	byStack          map[string]*Func
	all              []*Func
	buildServiceName string
}{byStack: make(map[string]*Func)}

// Register 登记被插桩函数。由生成的 init() 调用。
// 同一 StackName 重复登记时后者覆盖前者（重新生成后的重复 init 无害）。
func Register(fns ...*Func) {
	inventory.mu.Lock()
	defer inventory.mu.Unlock()
	for _, f := range fns {
		if f == nil || f.StackName == "" {
			continue
		}
		if _, exists := inventory.byStack[f.StackName]; !exists {
			inventory.all = append(inventory.all, f)
		}
		inventory.byStack[f.StackName] = f
	}
}

// SetBuildTimeServiceName 登记生成器从 go.mod 推导的服务名。
// 作为服务名解析的最后回退，首个非空值生效。
func SetBuildTimeServiceName(name string) {
	if name == "" {
		return
	}
	inventory.mu.Lock()
	defer inventory.mu.Unlock()
	if inventory.buildServiceName == "" {
		inventory.buildServiceName = name
	}
}

func buildTimeServiceName() string {
	inventory.mu.RLock()
	defer inventory.mu.RUnlock()
	return inventory.buildServiceName
}

// lookupByStack 按运行时符号名查找被插桩函数。
func lookupByStack(stack string) (*Func, bool) {
	inventory.mu.RLock()
	defer inventory.mu.RUnlock()
	f, ok := inventory.byStack[stack]
	return f, ok
}

// registeredDescriptions 返回清单的零值初始化视图。
func registeredDescriptions() []schema.FunctionDescription {
	inventory.mu.RLock()
	defer inventory.mu.RUnlock()
	descs := make([]schema.FunctionDescription, 0, len(inventory.all))
	for _, f := range inventory.all {
		descs = append(descs, schema.FunctionDescription{
			Function:  f.Name,
			Module:    f.Module,
			Objective: f.Objective,
		})
	}
	return descs
}
