package build

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/John-Robertt/dishindex/internal/config"
	"github.com/John-Robertt/dishindex/internal/domain"
	"github.com/John-Robertt/dishindex/internal/infra/fsx"
	"github.com/John-Robertt/dishindex/internal/scan"
)

// Execute 扫描所有分类目录，生成并写入 dishes.json。
//
// 错误语义（固定，不要改成“部分成功”）：
// - 分类目录不存在：告警并跳过，继续处理其他目录
// - 其他任何 I/O 错误：整次构建失败，不写出 JSON（即使前面的目录已扫描成功）
//
// ctx 只在目录之间检查。
func Execute(ctx context.Context, eff config.EffectiveConfig, obs Observer) (domain.BuildReport, []domain.DishRecord, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	started := time.Now()
	obs.OnStart(eff)

	rr := domain.BuildReport{
		Root:      eff.Root,
		Output:    eff.OutputPath(),
		StartedAt: started,
		Folders:   make([]domain.FolderResult, 0, len(eff.DishFolders)),
	}

	records, err := Collect(ctx, eff, obs, &rr)
	if err != nil {
		return domain.BuildReport{}, nil, err
	}

	data, err := Marshal(records)
	if err != nil {
		return domain.BuildReport{}, nil, fmt.Errorf("序列化菜品 JSON 失败：%w", err)
	}

	if err := fsx.EnsureDir(eff.OutputDirPath()); err != nil {
		return domain.BuildReport{}, nil, fmt.Errorf("创建输出目录 %q 失败：%w", eff.OutputDirPath(), err)
	}
	if err := fsx.WriteFileAtomicReplace(eff.OutputDirPath(), eff.OutputFile, data); err != nil {
		return domain.BuildReport{}, nil, fmt.Errorf("写入 %q 失败：%w", eff.OutputPath(), err)
	}

	rr.FinishedAt = time.Now()
	rr.Finalize()
	obs.OnDone(rr, time.Since(started))
	return rr, records, nil
}

// Collect 按配置顺序扫描分类目录并生成记录，不落盘。
// rr 非 nil 时追加每个目录的结果。
func Collect(ctx context.Context, eff config.EffectiveConfig, obs Observer, rr *domain.BuildReport) ([]domain.DishRecord, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	excluded := eff.ExcludedSet()
	soup := eff.SoupSet()

	records := make([]domain.DishRecord, 0, 64)
	for _, category := range eff.DishFolders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		names, err := scan.ScanCategory(eff.Root, category, excluded)
		if err != nil {
			var missing *scan.MissingFolderError
			if errors.As(err, &missing) {
				obs.OnFolderSkipped(category, missing.Path)
				if rr != nil {
					rr.Folders = append(rr.Folders, domain.FolderResult{Category: category, Status: domain.FolderStatusSkipped})
				}
				continue
			}
			return nil, err
		}

		for _, name := range names {
			records = append(records, domain.NewDishRecord(category, name, soup[category]))
		}
		obs.OnFolderScanned(category, len(names))
		if rr != nil {
			rr.Folders = append(rr.Folders, domain.FolderResult{Category: category, Status: domain.FolderStatusScanned, Records: len(names)})
		}
	}
	return records, nil
}

// Marshal 把记录序列化为 2 空格缩进的 JSON 数组。
//
// 输出约束：空列表为 "[]"；不转义 HTML 字符；中文原样输出；末尾不带换行。
// encoding/json 总会把 U+2028/U+2029 写成 \u2028/\u2029，解析结果不变，只是字节不同。
func Marshal(records []domain.DishRecord) ([]byte, error) {
	if records == nil {
		records = []domain.DishRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
