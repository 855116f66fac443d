package run

import (
	"time"

	"github.com/John-Robertt/ps4ren/internal/config"
	"github.com/John-Robertt/ps4ren/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - Observer 的实现必须并发安全。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用：sources、scan、plan、backup、exec。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在单个文件的改名执行完成时调用（仅 apply）。
	OnItemDone(idx, total int, file string, res domain.ItemResult, dur time.Duration)
}

// 阶段名。
const (
	PhaseSources = "sources"
	PhaseScan    = "scan"
	PhasePlan    = "plan"
	PhaseBackup  = "backup"
	PhaseExec    = "exec"
)
