package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/titanous/json5"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件/环境变量无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultFileName 是 cwd 下自动发现的配置文件名（可选）。
	// 同目录的 boxoffice.local.json5 会覆盖其中的字段。
	DefaultFileName = "boxoffice.json5"
	// EnvPrefix 是环境变量前缀：BOXOFFICE_OUT_DIR、BOXOFFICE_PROXY_URL ...
	EnvPrefix = "boxoffice"

	DefaultSiteRoot     = "https://www.imdb.com"
	DefaultFirstYear    = 2009
	DefaultLastYear     = 2018
	DefaultPagesPerYear = 2
	DefaultFormat       = "csv"
	DefaultTimeoutSec   = 20
	DefaultRetryMax     = 0
	DefaultLogLevel     = "info"
)

// CLIArgs 是 scrape 子命令暴露的参数，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --format=csv 必须能覆盖 BOXOFFICE_FORMAT=sqlite。
type CLIArgs struct {
	ConfigPath string

	OutDir    string
	OutDirSet bool

	Format    string
	FormatSet bool

	ArchiveDir    string
	ArchiveDirSet bool

	Replay  bool
	Verbose bool
}

// FileConfig 对应 boxoffice.json5 的解析结构。
// 零值表示“未指定”；retry_max 用指针区分“未指定”和显式 0。
type FileConfig struct {
	OutDir       string       `json:"out_dir"`
	SiteRoot     string       `json:"site_root"`
	FirstYear    int          `json:"first_year"`
	LastYear     int          `json:"last_year"`
	PagesPerYear int          `json:"pages_per_year"`
	Format       string       `json:"format"`
	Proxy        *ProxyConfig `json:"proxy"`
	RetryMax     *int         `json:"retry_max"`
	TimeoutSec   int          `json:"timeout_sec"`
	ArchiveDir   string       `json:"archive_dir"`
	LogLevel     string       `json:"log_level"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EnvConfig 是环境变量层（.env 会先被载入进程环境）。指针为 nil 表示未设置。
type EnvConfig struct {
	OutDir       *string `envconfig:"OUT_DIR"`
	SiteRoot     *string `envconfig:"SITE_ROOT"`
	FirstYear    *int    `envconfig:"FIRST_YEAR"`
	LastYear     *int    `envconfig:"LAST_YEAR"`
	PagesPerYear *int    `envconfig:"PAGES_PER_YEAR"`
	Format       *string `envconfig:"FORMAT"`
	ProxyURL     *string `envconfig:"PROXY_URL"`
	RetryMax     *int    `envconfig:"RETRY_MAX"`
	TimeoutSec   *int    `envconfig:"TIMEOUT_SEC"`
	ArchiveDir   *string `envconfig:"ARCHIVE_DIR"`
	LogLevel     *string `envconfig:"LOG_LEVEL"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是参与合并的配置文件路径（可能不存在）。
	ConfigPath string

	OutDir       string
	SiteRoot     string
	FirstYear    int
	LastYear     int
	PagesPerYear int
	Format       string

	ProxyURL string
	RetryMax int
	Timeout  time.Duration

	// ArchiveDir 为空表示不归档原始页面。
	ArchiveDir string
	// Replay=true 时只从 ArchiveDir 回放，不访问网络。
	Replay bool

	LogLevel string
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

// LoadEffective 读取配置文件与环境变量，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// - --config 给出：该文件（或其 .local 变体）必须存在
// - 未给出：<cwd>/boxoffice.json5 可选
// - <cwd>/.env 可选，只补充进程环境中尚未设置的变量
//
// 覆盖优先级（固定）：CLI > 环境变量 > boxoffice.local.json5 > boxoffice.json5 > 默认值
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, DefaultFileName)
	explicit := strings.TrimSpace(cli.ConfigPath) != ""
	if explicit {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := ReadFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if explicit && !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	ec, err := readEnvConfig(cwdAbs)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: "env:" + strings.ToUpper(EnvPrefix) + "_*", Err: err}
	}

	return merge(cwdAbs, cli, fc, ec, cfgPath)
}

// ReadFileConfig 读取 <name>.json5 并用 <name>.local.json5 覆盖（mergo.WithOverride）。
// 返回值 exists 表示两者中至少一个存在（都不存在不算错误）。
func ReadFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return FileConfig{}, false, err
	}
	if len(b) > 0 {
		if err := json5.Unmarshal(b, &fc); err != nil {
			return FileConfig{}, true, err
		}
		exists = true
	}

	localPath := localVariant(path)
	lb, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return FileConfig{}, exists, err
	}
	if len(lb) > 0 {
		var override FileConfig
		if err := json5.Unmarshal(lb, &override); err != nil {
			return FileConfig{}, true, fmt.Errorf("%s：%w", localPath, err)
		}
		if err := mergo.Merge(&fc, override, mergo.WithOverride); err != nil {
			return FileConfig{}, true, err
		}
		slog.Debug("merging config with local overrides", "local", localPath)
		exists = true
	}
	return fc, exists, nil
}

// localVariant：boxoffice.json5 => boxoffice.local.json5
func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func readEnvConfig(cwdAbs string) (EnvConfig, error) {
	dotenv := filepath.Join(cwdAbs, ".env")
	if err := godotenv.Load(dotenv); err != nil {
		// 只在文件存在但加载失败时提示；不存在是常态。
		if _, statErr := os.Stat(dotenv); statErr == nil {
			slog.Warn(".env found but could not be loaded", "path", dotenv, "err", err)
		}
	}

	var ec EnvConfig
	if err := envconfig.Process(EnvPrefix, &ec); err != nil {
		return EnvConfig{}, err
	}
	return ec, nil
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, ec EnvConfig, cfgPath string) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		ConfigPath:   cfgPath,
		OutDir:       ".",
		SiteRoot:     DefaultSiteRoot,
		FirstYear:    DefaultFirstYear,
		LastYear:     DefaultLastYear,
		PagesPerYear: DefaultPagesPerYear,
		Format:       DefaultFormat,
		RetryMax:     DefaultRetryMax,
		LogLevel:     DefaultLogLevel,
	}
	timeoutSec := DefaultTimeoutSec

	// 配置文件层
	setString(&eff.OutDir, fc.OutDir)
	setString(&eff.SiteRoot, fc.SiteRoot)
	setInt(&eff.FirstYear, fc.FirstYear)
	setInt(&eff.LastYear, fc.LastYear)
	setInt(&eff.PagesPerYear, fc.PagesPerYear)
	setString(&eff.Format, fc.Format)
	if fc.Proxy != nil {
		setString(&eff.ProxyURL, fc.Proxy.URL)
	}
	if fc.RetryMax != nil {
		eff.RetryMax = *fc.RetryMax
	}
	setInt(&timeoutSec, fc.TimeoutSec)
	setString(&eff.ArchiveDir, fc.ArchiveDir)
	setString(&eff.LogLevel, fc.LogLevel)

	// 环境变量层：显式设置即覆盖（包括显式的空串）。
	overrideString(&eff.OutDir, ec.OutDir)
	overrideString(&eff.SiteRoot, ec.SiteRoot)
	overrideInt(&eff.FirstYear, ec.FirstYear)
	overrideInt(&eff.LastYear, ec.LastYear)
	overrideInt(&eff.PagesPerYear, ec.PagesPerYear)
	overrideString(&eff.Format, ec.Format)
	overrideString(&eff.ProxyURL, ec.ProxyURL)
	overrideInt(&eff.RetryMax, ec.RetryMax)
	overrideInt(&timeoutSec, ec.TimeoutSec)
	overrideString(&eff.ArchiveDir, ec.ArchiveDir)
	overrideString(&eff.LogLevel, ec.LogLevel)

	// CLI 层
	if cli.OutDirSet {
		eff.OutDir = cli.OutDir
	}
	if cli.FormatSet {
		eff.Format = cli.Format
	}
	if cli.ArchiveDirSet {
		eff.ArchiveDir = cli.ArchiveDir
	}
	eff.Replay = cli.Replay
	if cli.Verbose {
		eff.LogLevel = "debug"
	}

	eff.Format = strings.ToLower(strings.TrimSpace(eff.Format))
	eff.LogLevel = strings.ToLower(strings.TrimSpace(eff.LogLevel))
	eff.SiteRoot = strings.TrimRight(strings.TrimSpace(eff.SiteRoot), "/")
	eff.ProxyURL = strings.TrimSpace(eff.ProxyURL)
	eff.Timeout = time.Duration(timeoutSec) * time.Second

	if err := validate(eff, timeoutSec); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff.OutDir = absCleanFrom(cwdAbs, eff.OutDir)
	if strings.TrimSpace(eff.ArchiveDir) != "" {
		eff.ArchiveDir = absCleanFrom(cwdAbs, eff.ArchiveDir)
	} else {
		eff.ArchiveDir = ""
	}
	return eff, nil
}

func validate(eff EffectiveConfig, timeoutSec int) error {
	if strings.TrimSpace(eff.OutDir) == "" {
		return fmt.Errorf("out_dir 不能为空")
	}
	if eff.FirstYear < 1900 || eff.FirstYear > 2100 || eff.LastYear < 1900 || eff.LastYear > 2100 {
		return fmt.Errorf("年份必须在 [1900, 2100]：first_year=%d last_year=%d", eff.FirstYear, eff.LastYear)
	}
	if eff.FirstYear > eff.LastYear {
		return fmt.Errorf("first_year(%d) 不能大于 last_year(%d)", eff.FirstYear, eff.LastYear)
	}
	if eff.PagesPerYear < 1 || eff.PagesPerYear > 10 {
		return fmt.Errorf("pages_per_year 必须在 [1, 10]，实际 %d", eff.PagesPerYear)
	}
	switch eff.Format {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("format 只能是 csv 或 sqlite，实际是 %q", eff.Format)
	}
	u, err := url.Parse(eff.SiteRoot)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("site_root 必须是 http/https 地址：%q", eff.SiteRoot)
	}
	if eff.ProxyURL != "" {
		if _, err := url.Parse(eff.ProxyURL); err != nil {
			return fmt.Errorf("proxy.url 无效：%w", err)
		}
	}
	if eff.RetryMax < 0 {
		return fmt.Errorf("retry_max 不能为负数：%d", eff.RetryMax)
	}
	if timeoutSec <= 0 {
		return fmt.Errorf("timeout_sec 必须为正数：%d", timeoutSec)
	}
	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", eff.LogLevel)
	}
	if eff.Replay && strings.TrimSpace(eff.ArchiveDir) == "" {
		return fmt.Errorf("--replay 需要 archive_dir")
	}
	return nil
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func overrideString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func overrideInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}
