package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/kinocal/internal/infra/fsx"
)

// Store 提供 <path>/cache/pages/ 下的页面 HTML 缓存读写。
//
// 约束：
// - key 是 URL 的 sha1（避免把 URL 直接落进文件名）
// - 只缓存详情页：列表页是“还有没有下一页”的活性信号，缓存会让分页失真
// - Disabled=true 时读写都变成 no-op（--no-cache）
type Store struct {
	Root     string
	Disabled bool
}

func New(root string, disabled bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		Disabled: disabled,
	}
}

// PagePath 返回 url 对应缓存文件的绝对路径。
func (s Store) PagePath(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("url 不能为空")
	}
	sum := sha1.Sum([]byte(url))
	name := hex.EncodeToString(sum[:]) + ".html"
	return filepath.Join(s.Root, "cache", "pages", name), nil
}

// ReadPage 读取 url 的缓存 HTML；未命中不算错误（ok=false）。
func (s Store) ReadPage(url string) ([]byte, bool, error) {
	if s.Disabled {
		return nil, false, nil
	}
	path, err := s.PagePath(url)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(b) == 0 {
		// 空缓存视为未命中（宁可重取，不要把空页当结果）。
		return nil, false, nil
	}
	return b, true, nil
}

// WritePage 把 url 的 HTML 写入缓存（原子覆盖）。Disabled 时为 no-op。
func (s Store) WritePage(url string, html []byte) error {
	if s.Disabled {
		return nil
	}
	if len(html) == 0 {
		return nil
	}
	path, err := s.PagePath(url)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), html)
}
