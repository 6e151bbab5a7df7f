package gen

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ceyewan/autometrics/xerrors"
)

// Generator instrument 代码生成器。
type Generator struct {
	// PrometheusURL 文档链接的 Prometheus 地址，空值用 DefaultPrometheusURL
	PrometheusURL string

	// Logger 生成过程日志，nil 时用 slog.Default()
	Logger *slog.Logger
}

func (g *Generator) prometheusURL() string {
	if g.PrometheusURL != "" {
		return g.PrometheusURL
	}
	return DefaultPrometheusURL
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// ProcessPackage 处理一个包目录：重写其中带注解的源文件并维护清单文件。
// 整个变换是幂等的，重复执行得到相同结果。
func (g *Generator) ProcessPackage(dir string) error {
	info, err := resolveModule(dir)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return xerrors.Wrap(err, "gen: read package dir")
	}

	var (
		pkgName string
		all     []*funcTarget
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") ||
			strings.HasSuffix(name, "_test.go") || name == InventoryFile {
			continue
		}
		filePkg, targets, err := g.processFile(filepath.Join(dir, name), info)
		if err != nil {
			return err
		}
		if pkgName == "" {
			pkgName = filePkg
		}
		all = append(all, targets...)
	}

	inventoryPath := filepath.Join(dir, InventoryFile)
	if len(all) == 0 {
		if err := os.Remove(inventoryPath); err != nil && !os.IsNotExist(err) {
			return xerrors.Wrap(err, "gen: remove stale inventory")
		}
		return nil
	}

	sort.Slice(all, func(i, j int) bool { return all[i].name < all[j].name })
	src, err := inventorySource(pkgName, info, all)
	if err != nil {
		return xerrors.Wrap(err, "gen: format inventory")
	}
	if err := os.WriteFile(inventoryPath, src, 0o644); err != nil {
		return xerrors.Wrap(err, "gen: write inventory")
	}

	g.logger().Info("instrumented package",
		"dir", dir, "module", info.moduleLabel, "functions", len(all))
	return nil
}

// processFile 重写单个源文件，返回其中的插桩目标。
func (g *Generator) processFile(path string, info *moduleInfo) (string, []*funcTarget, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", nil, xerrors.Wrap(err, "gen: read source file")
	}

	stripped := stripInjections(src)
	fset := token.NewFileSet()
	file, targets, err := analyzeFile(fset, path, stripped)
	if err != nil {
		return "", nil, err
	}
	pkgName := file.Name.Name

	if len(targets) == 0 {
		// 注解被移除的文件也要把残留的注入剥干净
		if !bytes.Equal(stripped, src) {
			if err := writeFormatted(path, stripped); err != nil {
				return "", nil, err
			}
		}
		return pkgName, nil, nil
	}

	// main 包的栈帧符号名前缀是 "main" 而不是 import 路径
	stackPrefix := info.pkgPath
	if pkgName == "main" {
		stackPrefix = "main"
	}

	var edits []edit
	for _, t := range targets {
		t.stackName = stackPrefix + "." + t.stackName

		if t.resultsRewrite != "" {
			results := t.decl.Type.Results
			edits = append(edits, edit{
				offset: fset.Position(results.Pos()).Offset,
				end:    fset.Position(results.End()).Offset,
				text:   t.resultsRewrite,
			})
		}

		lbrace := fset.Position(t.decl.Body.Lbrace).Offset
		edits = append(edits, edit{offset: lbrace + 1, text: injectionFor(t)})

		declPos := fset.Position(t.decl.Pos())
		lineStart := declPos.Offset - (declPos.Column - 1)
		docLines := docSection(g.prometheusURL(), t.name)
		if t.decl.Doc == nil {
			// 没有已有文档时不需要开头的空行
			docLines = docLines[1:]
		}
		edits = append(edits, edit{offset: lineStart, text: strings.Join(docLines, "\n") + "\n"})
	}

	if e, ok := importEdit(fset, file, stripped); ok {
		edits = append(edits, e)
	}

	if err := writeFormatted(path, applyEdits(stripped, edits)); err != nil {
		return "", nil, err
	}
	return pkgName, targets, nil
}

// importEdit 在文件尚未导入运行时包时生成对应的插入。
func importEdit(fset *token.FileSet, file *ast.File, src []byte) (edit, bool) {
	for _, imp := range file.Imports {
		if strings.Trim(imp.Path.Value, `"`) == runtimeImport {
			return edit{}, false
		}
	}

	// 优先并入已有的括号式 import 块
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.IMPORT {
			continue
		}
		if gd.Lparen.IsValid() {
			offset := fset.Position(gd.Rparen).Offset
			return edit{offset: offset, text: "\t\"" + runtimeImport + "\"\n"}, true
		}
	}

	// 单条 import 改写成括号块，运行时包单独一组
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.IMPORT || len(gd.Specs) != 1 {
			continue
		}
		start := fset.Position(gd.Pos()).Offset
		end := fset.Position(gd.End()).Offset
		spec := string(src[fset.Position(gd.Specs[0].Pos()).Offset:fset.Position(gd.Specs[0].End()).Offset])
		return edit{
			offset: start,
			end:    end,
			text:   "import (\n\t" + spec + "\n\n\t\"" + runtimeImport + "\"\n)",
		}, true
	}

	// 没有任何 import 时在 package 子句后另起一条声明
	offset := fset.Position(file.Name.End()).Offset
	for offset < len(src) && src[offset] != '\n' {
		offset++
	}
	return edit{offset: offset, text: "\n\nimport \"" + runtimeImport + "\""}, true
}

func writeFormatted(path string, src []byte) error {
	formatted, err := format.Source(src)
	if err != nil {
		return xerrors.Wrapf(err, "gen: format %s", path)
	}
	return os.WriteFile(path, formatted, 0o644)
}
