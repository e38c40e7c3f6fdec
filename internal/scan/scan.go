package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/dishindex/internal/domain"
)

// MissingFolderError 表示配置的分类目录在磁盘上不存在。
// 这是唯一可恢复的错误：上层应告警并跳过该分类。
type MissingFolderError struct {
	Category string
	Path     string
}

func (e *MissingFolderError) Error() string {
	return fmt.Sprintf("分类文件夹不存在：%s（%s）", e.Category, e.Path)
}

func (e *MissingFolderError) Unwrap() error { return fs.ErrNotExist }

// IsMissingFolder 判断 err 是否为 MissingFolderError。
func IsMissingFolder(err error) bool {
	var e *MissingFolderError
	return errors.As(err, &e)
}

// ScanCategory 列出 <root>/<category> 下符合条件的菜品文件名。
//
// 规则：
// - 只认扩展名恰好为 ".md" 的条目（区分大小写）；名字恰好是 ".md" 的文件没有菜名，跳过
// - 目录一律跳过，指向目录的符号链接同样跳过；断开的符号链接按普通文件处理
// - excluded 中的文件名（NFC 形式）不计入
// - 返回顺序即目录读取顺序（按文件名字节序），调用方不得再排序
//
// 目录不存在返回 *MissingFolderError；其他 I/O 错误原样包装返回，属于致命错误。
func ScanCategory(root, category string, excluded map[string]bool) ([]string, error) {
	dir := filepath.Join(filepath.Clean(root), category)

	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFolderError{Category: category, Path: dir}
		}
		return nil, fmt.Errorf("检查分类文件夹 %q 失败：%w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取分类文件夹 %q 失败：%w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if isDirEntry(dir, e) {
			continue
		}
		// macOS 上文件名常为 NFD，统一成 NFC 后再比较/输出。
		name := norm.NFC.String(e.Name())
		if filepath.Ext(name) != domain.MarkdownExt || name == domain.MarkdownExt {
			continue
		}
		if excluded[name] {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// isDirEntry 判断条目是否为目录；符号链接按其指向判断。
func isDirEntry(dir string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && fi.IsDir()
}
