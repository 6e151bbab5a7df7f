package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// apiError 实现了两种能力的枚举式错误类型。
type apiError struct {
	code string
}

func (e *apiError) Error() string { return e.code }

func (e *apiError) ResultLabel() Kind {
	// NotFound 虽然出现在错误位置，但声明为 ok
	if e.code == "NotFound" {
		return KindOk
	}
	return KindError
}

func (e *apiError) ValueLabel() string { return e.code }

// status 只实现了 ResultLabeler 的普通返回值类型。
type status string

func (s status) ResultLabel() Kind {
	if s == "healthy" {
		return KindOk
	}
	return KindError
}

func (s status) ValueLabel() string { return string(s) }

// silent 实现了 ResultLabeler 但对所有值都没有意见。
type silent struct{}

func (silent) ResultLabel() Kind { return "" }

func TestClassifyErrorArm(t *testing.T) {
	var err error

	// nil error ⇒ ok
	got := Classify(nil, nil, &err)
	assert.Equal(t, ResultLabels{Kind: KindOk}, got)

	// 非 nil error ⇒ error
	err = errors.New("boom")
	got = Classify(nil, nil, &err)
	assert.Equal(t, ResultLabels{Kind: KindError}, got)

	// 普通 error 没有细分标签
	assert.Empty(t, got.Detail)
}

func TestClassifyErrorArmWithCapabilities(t *testing.T) {
	// 声明为 error 的变体：error + 细分标签
	var err error = &apiError{code: "Timeout"}
	got := Classify(nil, nil, &err)
	assert.Equal(t, ResultLabels{Kind: KindError, Detail: "Timeout"}, got)

	// 声明为 ok 的变体：即使在错误位置也算 ok
	err = &apiError{code: "NotFound"}
	got = Classify(nil, nil, &err)
	assert.Equal(t, ResultLabels{Kind: KindOk, Detail: "NotFound"}, got)
}

func TestClassifyOkArmValueLabel(t *testing.T) {
	// Ok 分支内，返回值的声明可以覆盖分支默认值
	var err error
	s := status("degraded")
	got := Classify(nil, nil, &err, s)
	assert.Equal(t, ResultLabels{Kind: KindError, Detail: "degraded"}, got)

	s = status("healthy")
	got = Classify(nil, nil, &err, s)
	assert.Equal(t, ResultLabels{Kind: KindOk, Detail: "healthy"}, got)
}

func TestClassifyStandalone(t *testing.T) {
	// 没有 error 返回值时，由返回值自身的声明决定
	got := Classify(nil, nil, nil, status("healthy"))
	assert.Equal(t, ResultLabels{Kind: KindOk, Detail: "healthy"}, got)

	// 无意见的实现视为不分类
	got = Classify(nil, nil, nil, silent{})
	assert.Equal(t, ResultLabels{}, got)
}

func TestClassifyPrimitivesYieldNone(t *testing.T) {
	// 基本类型和普通类型一律不分类
	n := 42
	s := "hello"
	b := true
	got := Classify(nil, nil, nil, &n, &s, &b)
	assert.Equal(t, ResultLabels{}, got)

	got = Classify(nil, nil, nil)
	assert.Equal(t, ResultLabels{}, got)
}

func TestClassifyPredicates(t *testing.T) {
	tests := []struct {
		name    string
		okIf    func() bool
		errorIf func() bool
		want    Kind
	}{
		{name: "ok_if true", okIf: func() bool { return true }, want: KindOk},
		{name: "ok_if false", okIf: func() bool { return false }, want: KindError},
		{name: "error_if true", errorIf: func() bool { return true }, want: KindError},
		{name: "error_if false", errorIf: func() bool { return false }, want: KindOk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.okIf, tt.errorIf, nil)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestClassifyPredicateKeepsDetail(t *testing.T) {
	// 谓词只决定 Kind，细分标签仍然来自值标签能力
	var err error = &apiError{code: "Timeout"}
	got := Classify(func() bool { return true }, nil, &err)
	assert.Equal(t, ResultLabels{Kind: KindOk, Detail: "Timeout"}, got)
}
