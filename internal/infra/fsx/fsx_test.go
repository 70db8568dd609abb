package fsx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicReplace(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deep")

	if err := WriteFileAtomicReplace(dir, "calendar.ics", []byte("v1")); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "calendar.ics"))
	if err != nil || string(b) != "v1" {
		t.Fatalf("内容错误：%q（err=%v）", b, err)
	}

	// 覆盖写入。
	if err := WriteFileAtomicReplace(dir, "calendar.ics", []byte("v2")); err != nil {
		t.Fatalf("覆盖失败：%v", err)
	}
	b, _ = os.ReadFile(filepath.Join(dir, "calendar.ics"))
	if string(b) != "v2" {
		t.Fatalf("覆盖后内容错误：%q", b)
	}

	// 不得残留临时文件。
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("读目录失败：%v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("目录应只有目标文件：%v", entries)
	}
}
