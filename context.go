package autometrics

import (
	"context"
	"runtime"

	"github.com/ceyewan/autometrics/tracker"
)

// 调用方上下文的两套传播机制：
//
//  1. context 槽位：PreInstrument 返回的派生 context 携带当前函数的
//     身份，被调方从中读出 caller。context 是不可变值，函数返回即
//     自动"恢复"上一层的 caller，无需清理；
//  2. 栈回退：没有 context 的调用链上，扫描当前 goroutine 的调用栈，
//     找到最近的已登记被插桩祖先。
//
// 两套机制都以 goroutine 为边界，互不串扰。

type contextKey int

const (
	callerContextKey contextKey = iota
	stateContextKey
)

// callerSlot context 中携带的调用方身份。
type callerSlot struct {
	function string
	module   string
}

func withCaller(ctx context.Context, f *Func) context.Context {
	return context.WithValue(ctx, callerContextKey, callerSlot{function: f.Name, module: f.Module})
}

func callerFromContext(ctx context.Context) (callerSlot, bool) {
	c, ok := ctx.Value(callerContextKey).(callerSlot)
	return c, ok
}

// callState 一次进行中调用的状态，随派生 context 传给 Instrument。
type callState struct {
	fn      *Func
	call    tracker.Call
	caller  string
	okIf    func() bool
	errorIf func() bool
}

func withState(ctx context.Context, s *callState) context.Context {
	return context.WithValue(ctx, stateContextKey, s)
}

func stateFromContext(ctx context.Context) (*callState, bool) {
	s, ok := ctx.Value(stateContextKey).(*callState)
	return s, ok
}

// callerFromStack 扫描调用栈，返回 self 之外最近的已登记祖先。
// 先越过 self 自身的栈帧再开始匹配，这样递归调用会正确地把
// 上一层的自己识别为调用方。
func callerFromStack(self string) (callerSlot, bool) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	passedSelf := false
	for {
		frame, more := frames.Next()
		if !passedSelf {
			if frame.Function == self {
				passedSelf = true
			}
		} else if f, ok := lookupByStack(frame.Function); ok {
			return callerSlot{function: f.Name, module: f.Module}, true
		}
		if !more {
			return callerSlot{}, false
		}
	}
}
