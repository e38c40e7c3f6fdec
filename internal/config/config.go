package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/text/unicode/norm"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件/环境变量无法读取、解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// ConfigName 是站点根目录下可选配置文件的文件名（不含扩展名，支持 json/yaml/yml）。
	ConfigName = "dishindex"
	// EnvPrefix 是环境变量前缀，例如 DISHINDEX_OUTPUT_DIR。
	EnvPrefix = "DISHINDEX"
	// VitepressDir 是输出目录的固定父目录（相对站点根目录）。
	VitepressDir = ".vitepress"
)

const (
	keyDishFolders  = "dish_folders"
	keyExcludeFiles = "exclude_files"
	keySoupFolders  = "soup_folders"
	keyOutputDir    = "output_dir"
	keyOutputFile   = "output_file"
)

// 内置默认值，与站点现有目录结构一致。
var (
	DefaultDishFolders = []string{
		"主食", "凉拌", "卤菜", "早餐", "汤", "炒菜", "炖菜", "炸品",
		"烤类", "烫菜", "煮锅", "砂锅菜", "蒸菜", "配料", "饮品",
	}
	DefaultExcludeFiles = []string{"README.md", "index.md"}
	DefaultSoupFolders  = []string{"汤"}
)

const (
	DefaultOutputDir  = "public"
	DefaultOutputFile = "dishes.json"
)

// CLIArgs 是 CLI 暴露的入口，保留“是否显式指定”的信息，保证 CLI 优先级最高。
type CLIArgs struct {
	Root       string
	ConfigFile string

	OutputDir    string
	OutputDirSet bool

	OutputFile    string
	OutputFileSet bool
}

// EffectiveConfig 是合并并校验后的最终配置，构建流程直接消费。
type EffectiveConfig struct {
	Root       string `yaml:"root" json:"root"`
	ConfigFile string `yaml:"config_file,omitempty" json:"config_file,omitempty"`

	DishFolders  []string `yaml:"dish_folders" json:"dish_folders"`
	ExcludeFiles []string `yaml:"exclude_files" json:"exclude_files"`
	SoupFolders  []string `yaml:"soup_folders" json:"soup_folders"`

	OutputDir  string `yaml:"output_dir" json:"output_dir"`
	OutputFile string `yaml:"output_file" json:"output_file"`
}

// OutputDirPath 返回 <root>/.vitepress/<output_dir>。
func (c EffectiveConfig) OutputDirPath() string {
	return filepath.Join(c.Root, VitepressDir, c.OutputDir)
}

// OutputPath 返回最终 JSON 文件的绝对路径。
func (c EffectiveConfig) OutputPath() string {
	return filepath.Join(c.OutputDirPath(), c.OutputFile)
}

// ExcludedSet 返回排除文件名集合。
func (c EffectiveConfig) ExcludedSet() map[string]bool {
	return toSet(c.ExcludeFiles)
}

// SoupSet 返回汤类目录集合。
func (c EffectiveConfig) SoupSet() map[string]bool {
	return toSet(c.SoupFolders)
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置，然后与 CLI 参数合并为最终配置。
//
// 站点根目录：CLI root（相对 cwd）> cwd。
//
// 覆盖优先级（固定）：
// CLI > 进程环境变量 > <root>/.env > 配置文件 > 内置默认值
//
// 配置文件：--config 指定时必须存在；否则在 root 下查找 dishindex.{json,yaml,yml}，找不到不报错。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	root := cwdAbs
	if strings.TrimSpace(cli.Root) != "" {
		root = absCleanFrom(cwdAbs, cli.Root)
	}

	v := viper.New()
	v.SetDefault(keyDishFolders, DefaultDishFolders)
	v.SetDefault(keyExcludeFiles, DefaultExcludeFiles)
	v.SetDefault(keySoupFolders, DefaultSoupFolders)
	v.SetDefault(keyOutputDir, DefaultOutputDir)
	v.SetDefault(keyOutputFile, DefaultOutputFile)

	cfgPath, err := readConfigFile(v, cwdAbs, root, cli.ConfigFile)
	if err != nil {
		return EffectiveConfig{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	envPath := filepath.Join(root, ".env")
	if err := applyDotenv(v, envPath); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: envPath, Err: err}
	}

	src := cfgPath
	if src == "" {
		src = root
	}
	return merge(root, cfgPath, cli, v, src)
}

// readConfigFile 把配置文件读入 v，返回实际使用的文件路径（未使用配置文件时为空串）。
func readConfigFile(v *viper.Viper, cwdAbs, root, explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		p := absCleanFrom(cwdAbs, explicit)
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", &Error{Code: ErrCodeNotFound, Path: p, Err: err}
			}
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return "", &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		return p, nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(root)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return "", nil
		}
		return "", &Error{Code: ErrCodeInvalid, Path: v.ConfigFileUsed(), Err: err}
	}
	return v.ConfigFileUsed(), nil
}

// applyDotenv 把 <root>/.env 中带前缀的变量作为环境变量层应用到 v。
// 进程环境变量中已存在的键不会被覆盖；.env 也不会写回进程环境。
func applyDotenv(v *viper.Viper, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, key := range []string{keyDishFolders, keyExcludeFiles, keySoupFolders, keyOutputDir, keyOutputFile} {
		envKey := EnvPrefix + "_" + strings.ToUpper(key)
		if _, ok := os.LookupEnv(envKey); ok {
			continue
		}
		if val, ok := vars[envKey]; ok {
			v.Set(key, val)
		}
	}
	return nil
}

func merge(root, cfgPath string, cli CLIArgs, v *viper.Viper, src string) (EffectiveConfig, error) {
	invalid := func(err error) error {
		return &Error{Code: ErrCodeInvalid, Path: src, Err: err}
	}

	folders := normalizeList(stringList(v, keyDishFolders))
	if len(folders) == 0 {
		return EffectiveConfig{}, invalid(fmt.Errorf("dish_folders 不能为空"))
	}
	for _, f := range folders {
		if err := validateName("dish_folders", f); err != nil {
			return EffectiveConfig{}, invalid(err)
		}
	}

	outputDir := strings.TrimSpace(v.GetString(keyOutputDir))
	if cli.OutputDirSet {
		outputDir = strings.TrimSpace(cli.OutputDir)
	}
	outputDir, err := validateOutputDir(outputDir)
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	outputFile := strings.TrimSpace(v.GetString(keyOutputFile))
	if cli.OutputFileSet {
		outputFile = strings.TrimSpace(cli.OutputFile)
	}
	if err := validateName("output_file", outputFile); err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	return EffectiveConfig{
		Root:         root,
		ConfigFile:   cfgPath,
		DishFolders:  folders,
		ExcludeFiles: normalizeList(stringList(v, keyExcludeFiles)),
		SoupFolders:  normalizeList(stringList(v, keySoupFolders)),
		OutputDir:    outputDir,
		OutputFile:   outputFile,
	}, nil
}

// stringList 读取列表型配置：文件中是数组，环境变量中是逗号分隔的字符串。
func stringList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		return strings.Split(raw, ",")
	default:
		return v.GetStringSlice(key)
	}
}

// normalizeList 去掉首尾空白与空项，并统一为 NFC。
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, norm.NFC.String(s))
	}
	return out
}

// validateName 要求 s 是单个路径段。
func validateName(field, s string) error {
	if s == "" {
		return fmt.Errorf("%s 不能为空", field)
	}
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%s 必须是单个文件/目录名，实际是 %q", field, s)
	}
	return nil
}

// validateOutputDir 要求 output_dir 为相对路径且不逃出 .vitepress；空串表示 .vitepress 本身。
func validateOutputDir(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if filepath.IsAbs(s) || strings.HasPrefix(s, "/") {
		return "", fmt.Errorf("output_dir 必须是相对 %s 的路径，实际是 %q", VitepressDir, s)
	}
	clean := filepath.Clean(filepath.FromSlash(s))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output_dir 不能逃出 %s：%q", VitepressDir, s)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

func toSet(list []string) map[string]bool {
	m := make(map[string]bool, len(list))
	for _, s := range list {
		m[s] = true
	}
	return m
}
