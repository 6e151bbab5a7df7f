package tracker

import (
	"context"

	"github.com/ceyewan/autometrics/schema"
)

// NewNoop 创建空跟踪器。
// 库未初始化或显式禁用时使用，所有操作都是零开销的空实现。
func NewNoop() Tracker {
	return noopTracker{}
}

type noopTracker struct{}

func (noopTracker) Start(context.Context, *schema.GaugeLabels) Call { return noopCall{} }
func (noopTracker) SetBuildInfo(schema.BuildInfoLabels)             {}
func (noopTracker) InitializeCounters([]schema.FunctionDescription) {}

type noopCall struct{}

func (noopCall) Finish(*schema.CounterLabels, *schema.HistogramLabels) {}
func (noopCall) Drop()                                                 {}
