package gen

import (
	"fmt"
	"go/format"
	"strings"
)

// InventoryFile 每个包的函数清单文件名。
const InventoryFile = "autometrics.gen.go"

// inventorySource 生成清单文件内容：每个被插桩函数一个包级 Func 变量，
// init() 中统一登记。清单同时服务运行时的栈回退查找和 InitToZero。
func inventorySource(pkgName string, info *moduleInfo, targets []*funcTarget) ([]byte, error) {
	var b strings.Builder
	b.WriteString("// Code generated by autometrics instrument. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkgName)
	fmt.Fprintf(&b, "import %q\n\n", runtimeImport)

	b.WriteString("var (\n")
	for _, t := range targets {
		fmt.Fprintf(&b, "\t%s = &autometrics.Func{\n", t.varName)
		fmt.Fprintf(&b, "\t\tName:      %q,\n", t.name)
		fmt.Fprintf(&b, "\t\tModule:    %q,\n", info.moduleLabel)
		fmt.Fprintf(&b, "\t\tStackName: %q,\n", t.stackName)
		if t.dir.objective != "" {
			fmt.Fprintf(&b, "\t\tObjective: &%s,\n", t.dir.objective)
		}
		if t.dir.trackConcurrency {
			b.WriteString("\t\tTrackConcurrency: true,\n")
		}
		b.WriteString("\t}\n")
	}
	b.WriteString(")\n\n")

	b.WriteString("func init() {\n")
	b.WriteString("\tautometrics.Register(\n")
	for _, t := range targets {
		fmt.Fprintf(&b, "\t\t%s,\n", t.varName)
	}
	b.WriteString("\t)\n")
	fmt.Fprintf(&b, "\tautometrics.SetBuildTimeServiceName(%q)\n", info.serviceName)
	b.WriteString("}\n")

	return format.Source([]byte(b.String()))
}
