package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.FirstYear != 2009 || eff.LastYear != 2018 || eff.PagesPerYear != 2 {
		t.Fatalf("默认年份/页数不正确：%+v", eff)
	}
	if eff.SiteRoot != DefaultSiteRoot || eff.Format != "csv" {
		t.Fatalf("默认站点/格式不正确：%+v", eff)
	}
	if eff.RetryMax != 0 || eff.Timeout != 20*time.Second {
		t.Fatalf("默认重试/超时不正确：%+v", eff)
	}
	if eff.OutDir != filepath.Clean(cwd) {
		t.Fatalf("默认 out_dir 应为 cwd：%q", eff.OutDir)
	}
	if eff.ArchiveDir != "" || eff.Replay {
		t.Fatalf("默认不归档：%+v", eff)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.json5"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_JSON5AndLocalOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "boxoffice.json5"), []byte(`{
  // 只抓最近三年
  first_year: 2016,
  last_year: 2018,
  format: "sqlite",
  proxy: { url: "http://127.0.0.1:7890" },
}`))
	writeFile(t, filepath.Join(cwd, "boxoffice.local.json5"), []byte(`{ format: "csv", retry_max: 2, }`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.FirstYear != 2016 || eff.LastYear != 2018 {
		t.Fatalf("年份未从配置文件读取：%+v", eff)
	}
	if eff.Format != "csv" {
		t.Fatalf("local 文件应覆盖 format，实际 %q", eff.Format)
	}
	if eff.RetryMax != 2 {
		t.Fatalf("local 文件应设置 retry_max=2，实际 %d", eff.RetryMax)
	}
	if eff.ProxyURL != "http://127.0.0.1:7890" {
		t.Fatalf("proxy.url 未保留：%q", eff.ProxyURL)
	}
}

func TestLoadEffective_EnvOverridesFile_CLIOverridesEnv(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "boxoffice.json5"), []byte(`{format: "csv", pages_per_year: 1}`))
	t.Setenv("BOXOFFICE_FORMAT", "sqlite")
	t.Setenv("BOXOFFICE_PAGES_PER_YEAR", "3")
	t.Setenv("BOXOFFICE_RETRY_MAX", "0")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Format != "sqlite" || eff.PagesPerYear != 3 {
		t.Fatalf("环境变量应覆盖配置文件：%+v", eff)
	}

	eff, err = LoadEffective(cwd, CLIArgs{Format: "csv", FormatSet: true, OutDir: "data", OutDirSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Format != "csv" {
		t.Fatalf("CLI 应覆盖环境变量，实际 %q", eff.Format)
	}
	if eff.OutDir != filepath.Join(cwd, "data") {
		t.Fatalf("相对 out_dir 应以 cwd 为基准：%q", eff.OutDir)
	}
}

func TestLoadEffective_DotEnv(t *testing.T) {
	cwd := t.TempDir()
	const key = "BOXOFFICE_TIMEOUT_SEC"
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
	writeFile(t, filepath.Join(cwd, ".env"), []byte(key+"=5\n"))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Timeout != 5*time.Second {
		t.Fatalf("期望 .env 设置 timeout=5s，实际 %s", eff.Timeout)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := []struct {
		name string
		file string
		cli  CLIArgs
	}{
		{"years reversed", `{first_year: 2018, last_year: 2009}`, CLIArgs{}},
		{"year out of range", `{first_year: 1800}`, CLIArgs{}},
		{"pages too many", `{pages_per_year: 11}`, CLIArgs{}},
		{"bad format", `{format: "xlsx"}`, CLIArgs{}},
		{"bad site root", `{site_root: "ftp://imdb.com"}`, CLIArgs{}},
		{"negative retry", `{retry_max: -1}`, CLIArgs{}},
		{"bad log level", `{log_level: "trace"}`, CLIArgs{}},
		{"replay without archive", `{}`, CLIArgs{Replay: true}},
		{"broken json5", `{first_year: }`, CLIArgs{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, "boxoffice.json5"), []byte(tc.file))

			_, err := LoadEffective(cwd, tc.cli)
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestLoadEffective_ReplayAndVerbose(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{ArchiveDir: "pages", ArchiveDirSet: true, Replay: true, Verbose: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !eff.Replay || eff.ArchiveDir != filepath.Join(cwd, "pages") {
		t.Fatalf("回放配置不正确：%+v", eff)
	}
	if eff.LogLevel != "debug" {
		t.Fatalf("-v 应切换为 debug，实际 %q", eff.LogLevel)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
