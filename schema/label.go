package schema

import "github.com/ceyewan/autometrics/objective"

// CounterLabels function.calls.count 指标的标签集。
// 每次函数调用完成时，计数器都会带着完整的标签集递增一次。
type CounterLabels struct {
	// Function 被插桩函数的本地名称
	Function string

	// Module 点分形式的包路径，标识函数所在的命名空间
	Module string

	// Caller 当前执行上下文中最近的被插桩祖先函数名，
	// 顶层调用为空字符串
	Caller string

	// Result 返回值分类结果，零值表示该函数的返回类型不参与分类
	Result ResultLabels

	// Objective 关联的 SLO 目标，nil 表示未关联；
	// 只有成功率维度会体现在计数器标签上
	Objective *objective.Objective
}

// Values 按 CounterLabelKeys 的顺序返回标签值。
// 未使用的位置取空字符串。ok / error 两列只有与当前 Kind 匹配的
// 一列会填入 Detail，这样 PromQL 可以用 result="error" 低成本筛选，
// 同时 Detail 总是落在与结果类型对应的稳定列上。
func (l *CounterLabels) Values() []string {
	var ok, errDetail string
	switch l.Result.Kind {
	case KindOk:
		ok = l.Result.Detail
	case KindError:
		errDetail = l.Result.Detail
	}

	var objName, objPercentile string
	if l.Objective != nil {
		if p, has := l.Objective.SuccessRateTarget(); has {
			objName = l.Objective.Name()
			objPercentile = p.String()
		}
	}

	return []string{
		l.Function,
		l.Module,
		l.Caller,
		string(l.Result.Kind),
		ok,
		errDetail,
		objName,
		objPercentile,
	}
}

// HistogramLabels function.calls.duration 指标的标签集。
type HistogramLabels struct {
	Function string
	Module   string

	// Objective 关联的 SLO 目标，只有延迟维度会体现在直方图标签上
	Objective *objective.Objective
}

// Values 按 HistogramLabelKeys 的顺序返回标签值。
func (l *HistogramLabels) Values() []string {
	var objName, objPercentile, objLatency string
	if l.Objective != nil {
		if latency, p, has := l.Objective.LatencyTarget(); has {
			objName = l.Objective.Name()
			objPercentile = p.String()
			objLatency = latency.String()
		}
	}

	return []string{
		l.Function,
		l.Module,
		objName,
		objPercentile,
		objLatency,
	}
}

// GaugeLabels function.calls.concurrent 指标的标签集。
type GaugeLabels struct {
	Function string
	Module   string
}

// Values 按 GaugeLabelKeys 的顺序返回标签值。
func (l *GaugeLabels) Values() []string {
	return []string{l.Function, l.Module}
}

// BuildInfoLabels build_info 指标的标签集。
// build_info 的值恒为 1，构建元数据全部承载在标签上。
type BuildInfoLabels struct {
	Version     string
	Commit      string
	Branch      string
	ServiceName string
}

// Values 按 BuildInfoLabelKeys 的顺序返回标签值。
func (l *BuildInfoLabels) Values() []string {
	return []string{l.Version, l.Commit, l.Branch, l.ServiceName}
}

// FunctionDescription 构建期登记的被插桩函数描述。
// 用于调用方栈回退查找，以及在流量到来前把函数清单以零值样本的
// 形式暴露给监控面板。
type FunctionDescription struct {
	// Function 函数的本地名称
	Function string

	// Module 点分形式的包路径
	Module string

	// Objective 关联的 SLO 目标，可以为 nil
	Objective *objective.Objective
}

// CounterLabels 返回该函数零值样本使用的计数器标签。
func (d *FunctionDescription) CounterLabels() *CounterLabels {
	return &CounterLabels{
		Function:  d.Function,
		Module:    d.Module,
		Objective: d.Objective,
	}
}
