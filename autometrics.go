// Package autometrics 提供函数级可观测性：为被注解的函数自动产出
// 请求数、延迟直方图和可选的并发 gauge 三类指标。
//
// 函数体不需要手写埋点，代码生成器（cmd/autometrics instrument）在每个
// 被注解函数的开头注入两行：
//
//	func Fetch(ctx context.Context, key string) (val string, err error) {
//		ctx = autometrics.PreInstrument(ctx, fetchFunc) //autometrics:defer
//		defer autometrics.Instrument(ctx, &err, &val)   //autometrics:defer
//		...
//	}
//
// PreInstrument 读出调用方、发布自身身份并开始计时；deferred 的
// Instrument 在函数返回（或 panic 展开）时完成分类并落指标。
// 库未经 Init 初始化时两者都是空操作，注入的代码可以安全地先于
// 初始化执行。
package autometrics

import (
	"context"

	"github.com/ceyewan/autometrics/schema"
)

// PreInstrument 开始跟踪一次函数调用。
//
// ctx 为 nil 表示函数本身没有 context 参数，此时调用方通过栈回退
// 查找。返回的派生 context 携带本次调用的状态和新的调用方身份，
// 必须原样传给配对的 Instrument。
func PreInstrument(ctx context.Context, f *Func, opts ...CallOption) context.Context {
	if f == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	// 先读调用方，再发布自己
	caller, ok := callerFromContext(ctx)
	if !ok {
		caller, _ = callerFromStack(f.StackName)
	}

	var gauge *schema.GaugeLabels
	if f.TrackConcurrency {
		gauge = &schema.GaugeLabels{Function: f.Name, Module: f.Module}
	}

	state := &callState{
		fn:      f,
		call:    activeTracker().Start(ctx, gauge),
		caller:  caller.function,
		okIf:    co.okIf,
		errorIf: co.errorIf,
	}
	return withState(withCaller(ctx, f), state)
}

// Instrument 完成一次函数调用的跟踪，必须直接 defer：
//
//	defer autometrics.Instrument(ctx, &err, &val)
//
// err 指向函数的 error 返回值（没有则传 nil），vals 是参与分类的
// 其余返回值的指针。正常返回时递增计数器并观测延迟；panic 展开时
// 只回退并发 gauge，然后原样重新抛出。
func Instrument(ctx context.Context, err *error, vals ...any) {
	r := recover()

	if ctx == nil {
		if r != nil {
			panic(r)
		}
		return
	}

	if state, ok := stateFromContext(ctx); ok {
		if r != nil {
			state.call.Drop()
		} else {
			result := schema.Classify(state.okIf, state.errorIf, err, vals...)
			state.call.Finish(
				&schema.CounterLabels{
					Function:  state.fn.Name,
					Module:    state.fn.Module,
					Caller:    state.caller,
					Result:    result,
					Objective: state.fn.Objective,
				},
				&schema.HistogramLabels{
					Function:  state.fn.Name,
					Module:    state.fn.Module,
					Objective: state.fn.Objective,
				},
			)
		}
	}

	if r != nil {
		panic(r)
	}
}
