package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strings"
)

// runtimeImport 注入代码依赖的运行时包。
const runtimeImport = "github.com/ceyewan/autometrics"

// funcTarget 一个待插桩的函数。
type funcTarget struct {
	// name function 标签值，方法为 Type.Method
	name string

	// varName 清单文件中生成的 Func 变量名
	varName string

	// stackName 运行时栈帧符号名
	stackName string

	dir *directive

	// ctxName context.Context 参数名，没有时为空
	ctxName string

	// errName 具名的 error 返回值名，没有时为空
	errName string

	// valNames 其余具名返回值名
	valNames []string

	// resultsRewrite 返回值列表未具名时补名后的文本，空表示无需改写
	resultsRewrite string

	decl *ast.FuncDecl
}

// edit 一处文本编辑。
type edit struct {
	offset int

	// end 大于 offset 时替换 [offset, end) 区间，否则为纯插入
	end int

	text string
}

// analyzeFile 解析（已剥离旧注入的）源码，找出全部待插桩函数。
func analyzeFile(fset *token.FileSet, filename string, src []byte) (*ast.File, []*funcTarget, error) {
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("gen: parse %s: %w", filename, err)
	}

	// 类型上的注解对该类型在本文件中的所有方法生效
	typeDirectives := map[string]*directive{}
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil {
				doc = gd.Doc
			}
			d, err := directiveOf(fset, doc)
			if err != nil {
				return nil, nil, err
			}
			if d != nil {
				typeDirectives[ts.Name.Name] = d
			}
		}
	}

	var targets []*funcTarget
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		if hasDirective(fd.Doc, skipDirective) {
			continue
		}

		d, err := directiveOf(fset, fd.Doc)
		if err != nil {
			return nil, nil, err
		}
		if d == nil && fd.Recv != nil {
			if base, _, ok := receiverType(fd); ok {
				d = typeDirectives[base]
			}
		}
		if d == nil {
			continue
		}

		target, err := newTarget(fset, fd, d, src)
		if err != nil {
			return nil, nil, err
		}
		targets = append(targets, target)
	}
	return file, targets, nil
}

// directiveOf 返回文档注释里的 //autometrics:inst 注解，没有时为 nil。
func directiveOf(fset *token.FileSet, doc *ast.CommentGroup) (*directive, error) {
	if doc == nil {
		return nil, nil
	}
	for _, comment := range doc.List {
		text := strings.TrimSpace(comment.Text)
		if text == instDirective || strings.HasPrefix(text, instDirective+" ") {
			return parseDirective(text, fset.Position(comment.Pos()))
		}
	}
	return nil, nil
}

func hasDirective(doc *ast.CommentGroup, prefix string) bool {
	if doc == nil {
		return false
	}
	for _, comment := range doc.List {
		if strings.HasPrefix(strings.TrimSpace(comment.Text), prefix) {
			return true
		}
	}
	return false
}

// receiverType 返回方法接收者的基础类型名和是否指针接收者。
func receiverType(fd *ast.FuncDecl) (name string, pointer bool, ok bool) {
	if fd.Recv == nil || len(fd.Recv.List) != 1 {
		return "", false, false
	}
	switch t := fd.Recv.List[0].Type.(type) {
	case *ast.Ident:
		return t.Name, false, true
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name, true, true
		}
	}
	return "", false, false
}

// newTarget 校验函数签名并构造插桩目标。
func newTarget(fset *token.FileSet, fd *ast.FuncDecl, d *directive, src []byte) (*funcTarget, error) {
	pos := fset.Position(fd.Pos())

	target := &funcTarget{name: fd.Name.Name, dir: d, decl: fd}
	if fd.Recv != nil {
		base, pointer, ok := receiverType(fd)
		if !ok {
			return nil, fmt.Errorf("%s: unsupported receiver type on %s", pos, fd.Name.Name)
		}
		target.name = base + "." + fd.Name.Name
		if pointer {
			target.stackName = "(*" + base + ")." + fd.Name.Name
		} else {
			target.stackName = base + "." + fd.Name.Name
		}
		target.varName = "autometrics" + base + fd.Name.Name
	} else {
		target.stackName = fd.Name.Name
		target.varName = "autometrics" + fd.Name.Name
	}

	// context.Context 参数（取第一个具名的）
	if fd.Type.Params != nil {
		for _, field := range fd.Type.Params.List {
			if !isContextType(field.Type) {
				continue
			}
			for _, ident := range field.Names {
				if ident.Name != "_" {
					target.ctxName = ident.Name
					break
				}
			}
			if target.ctxName != "" {
				break
			}
		}
	}

	// 返回值：error 单列，其余参与分类。未具名的返回值列表先补名，
	// 否则注入的 Instrument 捕获不到返回值，默认分类会整体失效
	if fd.Type.Results != nil && len(fd.Type.Results.List) > 0 {
		if fd.Type.Results.List[0].Names == nil {
			target.resultsRewrite = nameResults(fset, fd, src, target)
		} else {
			for _, field := range fd.Type.Results.List {
				isErr := isErrorType(field.Type)
				for _, ident := range field.Names {
					if ident.Name == "_" {
						continue
					}
					if isErr && target.errName == "" {
						target.errName = ident.Name
					} else {
						target.valNames = append(target.valNames, ident.Name)
					}
				}
			}
		}
	}

	if (d.okIf != "" || d.errorIf != "") && target.errName == "" && len(target.valNames) == 0 {
		return nil, fmt.Errorf("%s: --ok-if/--error-if require a return value on %s",
			pos, target.name)
	}
	return target, nil
}

// nameResults 为全部未具名的返回值生成名字并填充分类目标，
// 返回补名后的返回值列表文本（带括号）。
func nameResults(fset *token.FileSet, fd *ast.FuncDecl, src []byte, target *funcTarget) string {
	used := map[string]bool{}
	if fd.Recv != nil {
		for _, field := range fd.Recv.List {
			for _, ident := range field.Names {
				used[ident.Name] = true
			}
		}
	}
	if fd.Type.Params != nil {
		for _, field := range fd.Type.Params.List {
			for _, ident := range field.Names {
				used[ident.Name] = true
			}
		}
	}

	parts := make([]string, 0, len(fd.Type.Results.List))
	for _, field := range fd.Type.Results.List {
		typeText := string(src[fset.Position(field.Type.Pos()).Offset:fset.Position(field.Type.End()).Offset])
		var name string
		if isErrorType(field.Type) && target.errName == "" {
			name = freeName("err", used)
			target.errName = name
		} else {
			name = freeName("result", used)
			target.valNames = append(target.valNames, name)
		}
		parts = append(parts, name+" "+typeText)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// freeName 返回不与已有标识符冲突的名字，并登记占用。
func freeName(base string, used map[string]bool) string {
	name := base
	for i := 0; used[name]; i++ {
		name = fmt.Sprintf("%s%d", base, i)
	}
	used[name] = true
	return name
}

func isContextType(expr ast.Expr) bool {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Context" {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && ident.Name == "context"
}

func isErrorType(expr ast.Expr) bool {
	ident, ok := expr.(*ast.Ident)
	return ok && ident.Name == "error"
}

// injectionFor 生成注入到函数体开头的两条语句。
func injectionFor(t *funcTarget) string {
	// 谓词作用于 error 返回值，没有 error 返回值时作用于首个普通返回值
	pred := t.errName
	if pred == "" && len(t.valNames) > 0 {
		pred = t.valNames[0]
	}

	var opts string
	switch {
	case t.dir.okIf != "":
		opts = fmt.Sprintf(", autometrics.WithOkIf(func() bool { return %s(%s) })", t.dir.okIf, pred)
	case t.dir.errorIf != "":
		opts = fmt.Sprintf(", autometrics.WithErrorIf(func() bool { return %s(%s) })", t.dir.errorIf, pred)
	}

	ctxVar := "amCtx"
	pre := fmt.Sprintf("amCtx := autometrics.PreInstrument(nil, %s%s)", t.varName, opts)
	if t.ctxName != "" {
		ctxVar = t.ctxName
		pre = fmt.Sprintf("%s = autometrics.PreInstrument(%s, %s%s)", t.ctxName, t.ctxName, t.varName, opts)
	}

	args := ctxVar
	if t.errName != "" {
		args += ", &" + t.errName
	} else {
		args += ", nil"
	}
	for _, val := range t.valNames {
		args += ", &" + val
	}

	return fmt.Sprintf("\n\t%s %s\n\tdefer autometrics.Instrument(%s) %s\n",
		pre, deferMarker, args, deferMarker)
}

// applyEdits 按偏移从后往前应用编辑，区间互不重叠。
func applyEdits(src []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].offset > edits[j].offset })
	out := src
	for _, e := range edits {
		end := e.end
		if end < e.offset {
			end = e.offset
		}
		out = append(out[:e.offset], append([]byte(e.text), out[end:]...)...)
	}
	return out
}

// stripInjections 剥离此前注入的语句和文档节，保证重复生成幂等。
func stripInjections(src []byte) []byte {
	lines := strings.Split(string(src), "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.Contains(trimmed, deferMarker) {
			continue
		}
		if trimmed == docMarker {
			if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "//" {
				out = out[:len(out)-1]
			}
			for i+1 < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i+1]), "//") {
				i++
			}
			continue
		}
		out = append(out, lines[i])
	}
	return []byte(strings.Join(out, "\n"))
}
