package gen

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ceyewan/autometrics/xerrors"
)

// moduleInfo 被插桩包的模块定位信息。
type moduleInfo struct {
	// modulePath go.mod 声明的模块路径
	modulePath string

	// pkgPath 包的完整 import 路径
	pkgPath string

	// moduleLabel module 标签值：模块内相对包路径，"/" 替换为 "."；
	// 模块根包使用模块路径的末段
	moduleLabel string

	// serviceName 生成器推导的服务名回退值：模块路径末段
	serviceName string
}

// resolveModule 从包目录向上找 go.mod，推导该包的标签信息。
func resolveModule(pkgDir string) (*moduleInfo, error) {
	abs, err := filepath.Abs(pkgDir)
	if err != nil {
		return nil, xerrors.Wrap(err, "gen: resolve package dir")
	}

	dir := abs
	for {
		data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil {
			modulePath := modulePathOf(data)
			if modulePath == "" {
				return nil, xerrors.New("gen: go.mod has no module directive")
			}
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				return nil, xerrors.Wrap(err, "gen: locate package inside module")
			}
			return newModuleInfo(modulePath, filepath.ToSlash(rel)), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, xerrors.New("gen: no go.mod found above " + pkgDir)
		}
		dir = parent
	}
}

func newModuleInfo(modulePath, rel string) *moduleInfo {
	info := &moduleInfo{
		modulePath:  modulePath,
		serviceName: path.Base(modulePath),
	}
	if rel == "." || rel == "" {
		info.pkgPath = modulePath
		info.moduleLabel = path.Base(modulePath)
	} else {
		info.pkgPath = modulePath + "/" + rel
		info.moduleLabel = strings.ReplaceAll(rel, "/", ".")
	}
	return info
}

// modulePathOf 提取 go.mod 的 module 路径。
func modulePathOf(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "module "); ok {
			return strings.Trim(strings.TrimSpace(rest), `"`)
		}
	}
	return ""
}
