package schema

// 返回值分类协议。
//
// 分类决定 result 标签（ok / error）以及可选的细分标签（通常是枚举
// 变体名）。信息来源全部是注解处的声明：代码生成器根据声明的返回类型
// 决定捕获哪些返回值，运行时只通过接口断言分发——接口实现是编译期
// 声明的能力，不涉及反射。
//
// 解析优先级（从高到低）：
//  1. ok_if / error_if 谓词：谓词结果直接决定 Kind；
//  2. error 返回值：nil ⇒ ok，非 nil ⇒ error。实现了 ResultLabeler 的
//     内层值可以在各自的分支内覆盖这个默认值（例如把某个特定错误
//     变体标记为 ok）；
//  3. 非 error 返回值自身实现了 ResultLabeler：采用它声明的 Kind；
//  4. 其余情况不分类：基本类型和普通用户类型都落在这里。
//
// 细分标签在所有分支中都由 ValueLabeler 计算。

// Kind result 标签的取值。
type Kind string

const (
	// KindOk 调用被视为成功
	KindOk Kind = "ok"
	// KindError 调用被视为失败
	KindError Kind = "error"
)

// ResultLabels 一次分类的结果。零值表示不分类（result 标签留空）。
type ResultLabels struct {
	Kind   Kind
	Detail string
}

// ResultLabeler 显式结果标签能力。
//
// 用户类型（通常是描述多种结果的枚举）实现这个接口后，可以逐值声明
// 自己算 ok 还是 error，无论该值出现在 error 位置还是普通返回值位置。
// 返回空 Kind 表示"没有意见"：在 Ok/Err 分支内会回落到分支默认值，
// 在独立位置则视为不分类。没有显式声明的枚举变体应该返回 KindError——
// 既然值被放进了错误位置，除非声明否则按错误处理。
type ResultLabeler interface {
	ResultLabel() Kind
}

// ValueLabeler 值标签能力。
//
// 实现者返回一个描述当前值的短静态字符串，通常是枚举的活动变体名。
// 该字符串会填入计数器 ok / error 两列中与 Kind 匹配的一列。
// 基本标量类型和普通类型不实现该接口，细分标签自然缺省。
type ValueLabeler interface {
	ValueLabel() string
}

// Classify 对一次调用的返回值做分类。
//
// okIf / errorIf 是注解处声明的谓词（最多设置一个）；err 指向函数的
// error 返回值，没有 error 返回值时为 nil；vals 是其余返回值的指针。
// 分发完全基于接口断言，任何类型传入都能得到正确答案。
func Classify(okIf, errorIf func() bool, err *error, vals ...any) ResultLabels {
	// 规则 1：谓词覆盖
	if okIf != nil {
		return ResultLabels{Kind: kindIf(okIf(), KindOk, KindError), Detail: detailOf(err, vals)}
	}
	if errorIf != nil {
		return ResultLabels{Kind: kindIf(errorIf(), KindError, KindOk), Detail: detailOf(err, vals)}
	}

	// 规则 2：按 error 返回值分类，内层值的显式声明可以覆盖分支默认值
	if err != nil {
		if *err != nil {
			kind := KindError
			if declared := declaredKind(*err); declared != "" {
				kind = declared
			}
			return ResultLabels{Kind: kind, Detail: valueLabel(*err)}
		}
		kind := KindOk
		if v, ok := firstLabeled(vals); ok {
			if declared := declaredKind(v); declared != "" {
				kind = declared
			}
			return ResultLabels{Kind: kind, Detail: valueLabel(v)}
		}
		return ResultLabels{Kind: kind}
	}

	// 规则 3：返回值自身声明了结果标签
	if v, ok := firstLabeled(vals); ok {
		if declared := declaredKind(v); declared != "" {
			return ResultLabels{Kind: declared, Detail: valueLabel(v)}
		}
	}

	// 规则 4：不分类
	return ResultLabels{}
}

func kindIf(cond bool, then, otherwise Kind) Kind {
	if cond {
		return then
	}
	return otherwise
}

// declaredKind 返回值通过 ResultLabeler 声明的 Kind，未实现或无意见时为空。
func declaredKind(v any) Kind {
	if rl, ok := v.(ResultLabeler); ok {
		return rl.ResultLabel()
	}
	return ""
}

// valueLabel 返回值通过 ValueLabeler 提供的细分标签，未实现时为空。
func valueLabel(v any) string {
	if vl, ok := v.(ValueLabeler); ok {
		return vl.ValueLabel()
	}
	return ""
}

// firstLabeled 返回第一个参与分类协议的返回值。
func firstLabeled(vals []any) (any, bool) {
	for _, v := range vals {
		if v == nil {
			continue
		}
		if _, ok := v.(ResultLabeler); ok {
			return v, true
		}
		if _, ok := v.(ValueLabeler); ok {
			return v, true
		}
	}
	return nil, false
}

// detailOf 计算谓词分支下的细分标签：错误值优先，其次是普通返回值。
func detailOf(err *error, vals []any) string {
	if err != nil && *err != nil {
		if label := valueLabel(*err); label != "" {
			return label
		}
	}
	if v, ok := firstLabeled(vals); ok {
		return valueLabel(v)
	}
	return ""
}
