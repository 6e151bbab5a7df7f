// autometrics 命令行工具。
//
// 两个子命令：
//
//	autometrics instrument [packages...]       注入函数级插桩代码
//	autometrics generate-sloth-file            生成 Sloth SLO 定义文件
//
// instrument 通常挂在 go:generate 上：
//
//	//go:generate autometrics instrument .
package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ceyewan/autometrics/gen"
	"github.com/ceyewan/autometrics/rules"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "autometrics",
		Short:         "Function-level observability toolchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInstrumentCmd(), newGenerateSlothCmd())
	return root
}

func newInstrumentCmd() *cobra.Command {
	var prometheusURL string

	cmd := &cobra.Command{
		Use:   "instrument [packages...]",
		Short: "Inject instrumentation into annotated functions",
		Long: "Rewrites the given package directories: functions annotated with\n" +
			"//autometrics:inst get instrumentation statements, doc links and an\n" +
			"autometrics.gen.go inventory file. A trailing /... recurses.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			dirs, err := expandPackageArgs(args)
			if err != nil {
				return err
			}

			g := &gen.Generator{PrometheusURL: prometheusURL}
			for _, dir := range dirs {
				if err := g.ProcessPackage(dir); err != nil {
					return err
				}
			}
			return nil
		},
	}

	v := viper.New()
	_ = v.BindEnv("prometheus_url", "PROMETHEUS_URL")
	v.SetDefault("prometheus_url", gen.DefaultPrometheusURL)
	cmd.Flags().StringVar(&prometheusURL, "prometheus-url", v.GetString("prometheus_url"),
		"Prometheus base URL used in generated doc links")

	return cmd
}

func newGenerateSlothCmd() *cobra.Command {
	var (
		objectives []string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "generate-sloth-file",
		Short: "Generate a Sloth SLO definition file",
		Long: "Generates a https://sloth.dev SLO file with one success-rate SLO and\n" +
			"one latency SLO per objective percentile. Objectives used in instrumented\n" +
			"code must appear in this list for the alerts to fire.",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := rules.Generate(objectives)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			return os.WriteFile(output, doc, 0o644)
		},
	}

	cmd.Flags().StringSliceVar(&objectives, "objectives", rules.DefaultObjectives,
		"objective percentiles to generate SLOs for")
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"output path, stdout when omitted")

	return cmd
}

// expandPackageArgs 展开包参数，尾部 /... 表示递归所有含 Go 文件的子目录。
func expandPackageArgs(args []string) ([]string, error) {
	var dirs []string
	for _, arg := range args {
		root, recursive := strings.CutSuffix(arg, "/...")
		if root == "" {
			root = "."
		}
		if !recursive {
			dirs = append(dirs, root)
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "vendor" || name == "testdata") {
				return fs.SkipDir
			}
			if hasGoFiles(path) {
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dirs, nil
}

func hasGoFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".go") {
			return true
		}
	}
	return false
}
