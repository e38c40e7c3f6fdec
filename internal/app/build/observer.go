package build

import (
	"time"

	"github.com/John-Robertt/dishindex/internal/config"
	"github.com/John-Robertt/dishindex/internal/domain"
)

// Observer 把构建过程中的事件从核心流程中解耦出来。
//
// build 包只发事件，不做任何输出；CLI 决定如何展示（日志/终端）。
// 构建是单线程顺序执行的，事件按发生顺序依次调用。
type Observer interface {
	// OnStart 在开始扫描前调用。
	OnStart(eff config.EffectiveConfig)
	// OnFolderScanned 在某个分类目录扫描完成时调用。
	OnFolderScanned(category string, records int)
	// OnFolderSkipped 在分类目录不存在、被跳过时调用。
	OnFolderSkipped(category, path string)
	// OnDone 在 JSON 成功写入后调用。
	OnDone(rr domain.BuildReport, dur time.Duration)
}

// nopObserver 让 Execute 内部不必到处判 nil。
type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig) {}
func (nopObserver) OnFolderScanned(string, int) {}
func (nopObserver) OnFolderSkipped(string, string) {}
func (nopObserver) OnDone(domain.BuildReport, time.Duration) {}
