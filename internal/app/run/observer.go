package run

import (
	"time"

	"github.com/John-Robertt/kinocal/internal/config"
	"github.com/John-Robertt/kinocal/internal/domain"
)

// Observer 把执行进度回调给展示层（TTY 进度 UI）。
// 执行层只在关键节点同步调用；实现必须快速返回，不得阻塞管线。
type Observer interface {
	// OnStart 在管线启动前回调一次（展示生效配置）。
	OnStart(eff config.EffectiveConfig)

	// OnPhaseDone 在一个阶段（collect / enrich）结束时回调。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)

	// OnItemDone 在单部影片处理完成时回调。idx 从 1 开始。
	OnItemDone(idx, total int, title string, res domain.ItemResult, dur time.Duration)
}
