// Package gen 实现 instrument 代码生成器：扫描 Go 源文件中的
// autometrics 注解，把插桩语句注入函数体、维护每个包的函数清单文件
// autometrics.gen.go，并在函数文档里追加 Prometheus 查询链接。
//
// 注解写在函数（或类型）的文档注释里：
//
//	//autometrics:inst [--ok-if F] [--error-if F] [--track-concurrency] [--objective VAR]
//
// 写在类型上时对该类型在同文件中的全部方法生效，单个方法可用
// //autometrics:skip 排除。--ok-if / --error-if 的 F 是同包内的
// 单参数谓词，两者互斥：有 error 返回值时谓词收到它，否则收到首个
// 普通返回值。--objective 的 VAR 是包级 objective.Objective 变量名。
//
// 注入的语句带有 //autometrics:defer 标记，重新生成时会先剥离旧的
// 注入结果，整个变换是幂等的。
package gen

import (
	"fmt"
	"go/token"
	"strings"
)

// 注解前缀
const (
	instDirective = "//autometrics:inst"
	skipDirective = "//autometrics:skip"

	// deferMarker 标记注入的语句，重新生成时据此剥离
	deferMarker = "//autometrics:defer"
)

// directive 一条解析后的 //autometrics:inst 注解。
type directive struct {
	okIf             string
	errorIf          string
	objective        string
	trackConcurrency bool
}

// parseDirective 解析注解行的选项部分。
// 选项冲突、未知选项和缺失的选项值都是硬错误，报告带位置信息。
func parseDirective(line string, pos token.Position) (*directive, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, instDirective))
	fields := strings.Fields(rest)

	d := &directive{}
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "--ok-if":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("%s: --ok-if requires a predicate function name", pos)
			}
			i++
			d.okIf = fields[i]
		case "--error-if":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("%s: --error-if requires a predicate function name", pos)
			}
			i++
			d.errorIf = fields[i]
		case "--objective":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("%s: --objective requires a package-level variable name", pos)
			}
			i++
			d.objective = fields[i]
		case "--track-concurrency":
			d.trackConcurrency = true
		default:
			return nil, fmt.Errorf("%s: unknown option %q in autometrics directive", pos, fields[i])
		}
	}

	if d.okIf != "" && d.errorIf != "" {
		return nil, fmt.Errorf("%s: --ok-if and --error-if are mutually exclusive", pos)
	}
	return d, nil
}
