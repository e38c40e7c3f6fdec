package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/dishindex/internal/app/build"
	"github.com/John-Robertt/dishindex/internal/config"
	"github.com/John-Robertt/dishindex/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// exitError 携带进程退出码；cobra 自身的参数错误不会被包装，统一映射为 2。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type options struct {
	cwd string

	configFile string
	outputDir  string
	outputFile string
	jsonReport bool

	logLevel  string
	logFormat string
	verbose   bool
	quiet     bool

	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	o := &options{cwd: cwd, stdout: stdout, stderr: stderr}
	root := newRootCmd(o)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
	fmt.Fprint(stderr, cmd.UsageString())
	return 2
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dishindex [root]",
		Short: "扫描菜谱分类目录，生成站点使用的 dishes.json",
		Long: `dishindex 按配置顺序遍历站点根目录下的分类文件夹，
把每个 .md 菜品文档映射为一条记录，并写入 <root>/.vitepress/public/dishes.json。

root 默认为当前目录。root 目录恰好名为 build 或 config 时会被当作子命令，
请写成 ./build 或 ./config。

配置来源优先级：命令行 > 环境变量（DISHINDEX_*）> <root>/.env > <root>/dishindex.{json,yaml,yml} > 内置默认值。`,
		Args:              cobra.MaximumNArgs(1),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: o.setup,
		RunE:              o.runBuild,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.configFile, "config", "", "配置文件路径（默认查找 <root>/dishindex.{json,yaml,yml}）")
	pf.StringVar(&o.outputDir, "output-dir", "", "输出目录，相对 <root>/.vitepress（默认 public）")
	pf.StringVar(&o.outputFile, "output-file", "", "输出文件名（默认 dishes.json）")
	pf.StringVar(&o.logLevel, "log-level", "", "日志级别：trace|debug|info|warn|error")
	pf.StringVar(&o.logFormat, "log-format", "auto", "日志格式：auto|console|json")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "输出调试日志")
	pf.BoolVarP(&o.quiet, "quiet", "q", false, "只输出告警与错误")

	rootCmd.Flags().BoolVar(&o.jsonReport, "json", false, "在 stdout 输出本次构建报告（JSON）")

	buildCmd := &cobra.Command{
		Use:   "build [root]",
		Short: "生成 dishes.json（与直接运行 dishindex 相同）",
		Args:  cobra.MaximumNArgs(1),
		RunE:  o.runBuild,
	}
	buildCmd.Flags().BoolVar(&o.jsonReport, "json", false, "在 stdout 输出本次构建报告（JSON）")

	configCmd := &cobra.Command{
		Use:   "config [root]",
		Short: "以 YAML 输出生效配置",
		Args:  cobra.MaximumNArgs(1),
		RunE:  o.runConfig,
	}

	rootCmd.AddCommand(buildCmd, configCmd)
	return rootCmd
}

func (o *options) setup(cmd *cobra.Command, args []string) error {
	o.log = logging.New(logging.Config{
		Level: logging.ResolveLevel(logging.Options{
			LogLevel: o.logLevel,
			Verbose:  o.verbose,
			Quiet:    o.quiet,
		}),
		Format: o.logFormat,
		Out:    o.stderr,
	})
	return nil
}

func (o *options) loadConfig(cmd *cobra.Command, args []string) (config.EffectiveConfig, error) {
	cli := config.CLIArgs{
		ConfigFile:    o.configFile,
		OutputDir:     o.outputDir,
		OutputDirSet:  cmd.Flag("output-dir").Changed,
		OutputFile:    o.outputFile,
		OutputFileSet: cmd.Flag("output-file").Changed,
	}
	if len(args) > 0 {
		cli.Root = args[0]
	}

	eff, err := config.LoadEffective(o.cwd, cli)
	if err != nil {
		o.log.Error().Err(err).Str("error_code", config.Code(err)).Msg("加载配置失败")
		return config.EffectiveConfig{}, &exitError{code: 1, err: err}
	}
	return eff, nil
}

func (o *options) runBuild(cmd *cobra.Command, args []string) error {
	eff, err := o.loadConfig(cmd, args)
	if err != nil {
		return err
	}

	rr, _, err := build.Execute(cmd.Context(), eff, newLogReporter(o.log))
	if err != nil {
		o.log.Error().Err(err).Msg("菜品 JSON 生成失败")
		return &exitError{code: 1, err: err}
	}

	if o.jsonReport {
		if err := json.NewEncoder(o.stdout).Encode(rr); err != nil {
			return &exitError{code: 1, err: err}
		}
	}
	return nil
}

func (o *options) runConfig(cmd *cobra.Command, args []string) error {
	eff, err := o.loadConfig(cmd, args)
	if err != nil {
		return err
	}

	b, err := yaml.Marshal(eff)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("序列化配置失败：%w", err)}
	}
	if _, err := o.stdout.Write(b); err != nil {
		return &exitError{code: 1, err: err}
	}
	return nil
}
