package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "kinocal.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("写配置文件失败：%v", err)
	}
}

func TestLoadEffectiveDefaults(t *testing.T) {
	dir := t.TempDir()

	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("加载失败：%v", err)
	}
	if eff.Path != dir {
		t.Fatalf("path 错误：%q", eff.Path)
	}
	if eff.BaseURL != DefaultBaseURL {
		t.Fatalf("base_url 错误：%q", eff.BaseURL)
	}
	if eff.MaxPages != DefaultMaxPages || eff.MaxMovies != 0 {
		t.Fatalf("分页默认值错误：pages=%d movies=%d", eff.MaxPages, eff.MaxMovies)
	}
	if eff.BaseDelay != 5*time.Second || eff.PageDelay != 8*time.Second || eff.DetailDelay != 12*time.Second {
		t.Fatalf("延迟默认值错误：%v/%v/%v", eff.BaseDelay, eff.PageDelay, eff.DetailDelay)
	}
	if len(eff.ExcludeCountries) != 1 || eff.ExcludeCountries[0] != "Россия" {
		t.Fatalf("默认排除国家错误：%v", eff.ExcludeCountries)
	}
	if eff.SkipDetails || eff.NoCache || eff.Verbose {
		t.Fatal("布尔默认值应全为 false")
	}
}

func TestLoadEffectiveFileThenCLIOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
		"base_url": "https://other.example.com/schedule/",
		"max_pages": 5,
		"delay": 2,
		"skip_details": true,
		"exclude_countries": ["Франция"]
	}`)

	// 只有文件时：文件值生效。
	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("加载失败：%v", err)
	}
	if eff.BaseURL != "https://other.example.com/schedule/" || eff.MaxPages != 5 {
		t.Fatalf("文件值未生效：%q pages=%d", eff.BaseURL, eff.MaxPages)
	}
	if eff.BaseDelay != 2*time.Second {
		t.Fatalf("delay 文件值未生效：%v", eff.BaseDelay)
	}
	if !eff.SkipDetails {
		t.Fatal("skip_details 文件值未生效")
	}
	if len(eff.ExcludeCountries) != 1 || eff.ExcludeCountries[0] != "Франция" {
		t.Fatalf("exclude_countries 文件值未生效：%v", eff.ExcludeCountries)
	}

	// CLI 显式指定时：覆盖文件（包括 --skip-details=false 这种显式关闭）。
	eff, err = LoadEffective(dir, CLIArgs{
		MaxPages:         3,
		MaxPagesSet:      true,
		SkipDetails:      false,
		SkipDetailsSet:   true,
		ExcludeCountries: []string{"США", "Индия"},
	})
	if err != nil {
		t.Fatalf("加载失败：%v", err)
	}
	if eff.MaxPages != 3 {
		t.Fatalf("CLI 覆盖失败：pages=%d", eff.MaxPages)
	}
	if eff.SkipDetails {
		t.Fatal("--skip-details=false 必须能覆盖文件的 true")
	}
	if len(eff.ExcludeCountries) != 2 || eff.ExcludeCountries[0] != "США" {
		t.Fatalf("CLI 排除列表应整体替换：%v", eff.ExcludeCountries)
	}
}

func TestLoadEffectiveDelayLiftsPageAndDetail(t *testing.T) {
	dir := t.TempDir()

	eff, err := LoadEffective(dir, CLIArgs{DelaySec: 20, DelaySecSet: true})
	if err != nil {
		t.Fatalf("加载失败：%v", err)
	}
	// page/detail 不得低于基础延迟。
	if eff.BaseDelay != 20*time.Second || eff.PageDelay != 20*time.Second || eff.DetailDelay != 20*time.Second {
		t.Fatalf("延迟抬升错误：%v/%v/%v", eff.BaseDelay, eff.PageDelay, eff.DetailDelay)
	}
}

func TestLoadEffectiveFilePathRedirect(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "workdir")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("建目录失败：%v", err)
	}
	writeConfig(t, dir, `{"path": "workdir"}`)

	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("加载失败：%v", err)
	}
	if eff.Path != target {
		t.Fatalf("配置文件的 path 重定向未生效：%q，期望 %q", eff.Path, target)
	}

	// CLI 给了 path 时文件不得再重定向。
	cliDir := t.TempDir()
	eff, err = LoadEffective(dir, CLIArgs{Path: cliDir})
	if err != nil {
		t.Fatalf("加载失败：%v", err)
	}
	if eff.Path != filepath.Clean(cliDir) {
		t.Fatalf("CLI path 应优先：%q", eff.Path)
	}
}

func TestLoadEffectiveValidation(t *testing.T) {
	cases := []struct {
		name string
		cli  CLIArgs
	}{
		{"max_pages 为 0", CLIArgs{MaxPages: 0, MaxPagesSet: true}},
		{"max_movies 为负", CLIArgs{MaxMovies: -1, MaxMoviesSet: true}},
		{"delay 为 0", CLIArgs{DelaySec: 0, DelaySecSet: true}},
		{"base_url 非 http", CLIArgs{BaseURL: "ftp://x.com/", BaseURLSet: true}},
		{"base_url 为空", CLIArgs{BaseURL: "", BaseURLSet: true}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := LoadEffective(t.TempDir(), c.cli)
			if err == nil {
				t.Fatal("期望校验错误")
			}
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("error_code 错误：%q", Code(err))
			}
		})
	}
}

func TestLoadEffectiveBrokenJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not json`)

	_, err := LoadEffective(dir, CLIArgs{})
	if err == nil {
		t.Fatal("损坏的配置文件应报错")
	}
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("error_code 错误：%q", Code(err))
	}
}
