package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/dishindex/internal/app/build"
	"github.com/John-Robertt/dishindex/internal/config"
	"github.com/John-Robertt/dishindex/internal/domain"
)

var _ build.Observer = (*logReporter)(nil)

// logReporter 把构建事件写成日志（stderr），stdout 保留给 --json 报告。
type logReporter struct {
	log zerolog.Logger
}

func newLogReporter(log zerolog.Logger) *logReporter {
	return &logReporter{log: log}
}

func (r *logReporter) OnStart(eff config.EffectiveConfig) {
	ev := r.log.Debug().
		Str("root", eff.Root).
		Strs("dish_folders", eff.DishFolders).
		Strs("soup_folders", eff.SoupFolders).
		Str("output", eff.OutputPath())
	if eff.ConfigFile != "" {
		ev = ev.Str("config", eff.ConfigFile)
	}
	ev.Msg("开始生成菜品 JSON")
}

func (r *logReporter) OnFolderScanned(category string, records int) {
	r.log.Debug().Str("category", category).Int("records", records).Msg("分类扫描完成")
}

func (r *logReporter) OnFolderSkipped(category, path string) {
	r.log.Warn().Str("category", category).Str("path", path).Msg("分类文件夹不存在，已跳过")
}

func (r *logReporter) OnDone(rr domain.BuildReport, dur time.Duration) {
	r.log.Info().
		Int("count", rr.Summary.Records).
		Int("skipped_folders", rr.Summary.Skipped).
		Str("output", rr.Output).
		Dur("took", dur).
		Msgf("菜品 JSON 生成成功！共 %d 道菜品", rr.Summary.Records)
}
