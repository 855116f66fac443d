package run

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/ps4ren/internal/config"
	"github.com/John-Robertt/ps4ren/internal/domain"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	fields     map[string]map[string]any
	items      []string
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
	if o.fields == nil {
		o.fields = make(map[string]map[string]any)
	}
	o.fields[name] = fields
}

func (o *recordObserver) OnItemDone(idx, total int, file string, res domain.ItemResult, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, file)
}

func TestExecuteWithObserver_DryRunPhases(t *testing.T) {
	fs, eff := fixture(t)

	obs := &recordObserver{}
	_ = ExecuteWithObserver(context.Background(), eff, deps(fs), obs)

	if obs.startCalls != 1 {
		t.Fatalf("期望 OnStart 调用 1 次，实际 %d", obs.startCalls)
	}
	wantPhases := []string{PhaseSources, PhaseScan, PhasePlan}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, wantPhases)
	}
	if len(obs.items) != 0 {
		t.Fatalf("dry-run 不应有执行事件：%v", obs.items)
	}
	if got := obs.fields[PhasePlan]["renamed"]; got != 2 {
		t.Fatalf("plan 阶段 renamed 不对：%v", got)
	}
	if got := obs.fields[PhaseSources]["records"]; got != 2 {
		t.Fatalf("sources 阶段 records 不对：%v", got)
	}
}

func TestExecuteWithObserver_ApplyEmitsItems(t *testing.T) {
	fs, eff := fixture(t)
	eff.Apply = true
	eff.Backup = true

	obs := &recordObserver{}
	_ = ExecuteWithObserver(context.Background(), eff, deps(fs), obs)

	wantPhases := []string{PhaseSources, PhaseScan, PhasePlan, PhaseBackup, PhaseExec}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, wantPhases)
	}
	if len(obs.items) != 2 {
		t.Fatalf("期望 2 个执行事件，实际 %v", obs.items)
	}
	if got := obs.fields[PhaseExec]["total_items"]; got != 2 {
		t.Fatalf("exec total_items 不对：%v", got)
	}
}

func TestExecuteWithObserver_NilObserver_SameResultAsExecute(t *testing.T) {
	fsA, eff := fixture(t)
	fsB, _ := fixture(t)

	a := Execute(context.Background(), eff, deps(fsA))
	b := ExecuteWithObserver(context.Background(), eff, deps(fsB), nil)

	// run_id 每次不同；对比时归零。
	a.RunID, b.RunID = "", ""

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("nil observer 不应改变结果：\nExecute=%+v\nWithObs=%+v", a, b)
	}
}
