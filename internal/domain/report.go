package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusRenamed = "renamed"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

const (
	FileStatusPlanned = "planned"
	FileStatusRenamed = "renamed"
	FileStatusFailed  = "failed"
)

const (
	ErrCodeParseFailed    = "parse_failed"
	ErrCodeLookupMiss     = "lookup_miss"
	ErrCodeTargetConflict = "target_conflict"
	ErrCodeTargetExists   = "target_exists"
	ErrCodeMoveFailed     = "move_failed"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeSourceFailed   = "source_failed"
	ErrCodeBackupFailed   = "backup_failed"
	ErrCodeConfigNotFound = "config_not_found"
	ErrCodeConfigInvalid  = "config_invalid"
)

// RunReport 是对外稳定输出（report json / stdout JSON）的结构。
type RunReport struct {
	RunID  string `json:"run_id"`
	Path   string `json:"path"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	DatabaseSize int             `json:"database_size"`
	Collisions   int             `json:"collisions"`
	Sources      []SourceSummary `json:"sources"`
	Backup       string          `json:"backup"`

	Summary Counts       `json:"summary"`
	Items   []ItemResult `json:"items"`
}

// SourceSummary 记录单个数据源的加载结果。
type SourceSummary struct {
	Name       string `json:"name"`
	Origin     string `json:"origin"`
	Loaded     int    `json:"loaded"`
	Skipped    int    `json:"skipped"`
	Collisions int    `json:"collisions"`
	Error      string `json:"error"`
}

type ItemResult struct {
	File    string `json:"file"`
	NewName string `json:"new_name"`
	Status  string `json:"status"`

	TitleID string `json:"title_id"`
	Pattern string `json:"pattern"`
	Version string `json:"version"`

	ErrorCode   string   `json:"error_code"`
	ErrorMsg    string   `json:"error_msg"`
	Suggestions []string `json:"suggestions"`

	// FileStatus 只对 renamed 条目有意义：planned（dry-run）/ renamed / failed。
	FileStatus string `json:"file_status"`
}

// ItemFromDecision 把规划决策转换为报告条目（dry-run 视角）。
func ItemFromDecision(d RenameDecision) ItemResult {
	it := ItemResult{
		File:        d.Original,
		NewName:     d.NewName,
		TitleID:     string(d.TitleID),
		Version:     d.Version,
		Suggestions: []string{},
	}
	if d.Pattern != PatternUnknown {
		it.Pattern = d.Pattern.String()
	}
	if len(d.Suggestions) > 0 {
		it.Suggestions = append(it.Suggestions, d.Suggestions...)
	}

	switch d.Outcome {
	case OutcomeRenamed:
		it.Status = StatusRenamed
		it.FileStatus = FileStatusPlanned
	case OutcomeSkipped:
		it.Status = StatusSkipped
		it.ErrorMsg = d.Reason
	default:
		it.Status = StatusError
		it.ErrorCode = d.ErrorCode
		it.ErrorMsg = d.Reason
	}
	return it
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 保持输入顺序；file=="" 的合成条目稳定地排到最后
// 3) summary 由 items 折叠得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].File != "" && r.Items[j].File == ""
	})

	var s Counts
	for _, it := range r.Items {
		if it.File == "" {
			// 合成条目（配置/数据源失败）不是文件决策，不计入统计。
			continue
		}
		s.Total++
		switch it.Status {
		case StatusRenamed:
			s.Renamed++
		case StatusSkipped:
			s.Skipped++
		case StatusError:
			s.Errors++
		}
	}
	r.Summary = s
}

// HasSyntheticErrors 表示报告中是否存在与具体文件无关的失败条目。
func (r RunReport) HasSyntheticErrors() bool {
	for _, it := range r.Items {
		if it.File == "" && it.Status == StatusError {
			return true
		}
	}
	return false
}

// MarshalJSON 仅用于集中约束输出的稳定性（nil slice 输出为 []）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	if r.Sources == nil {
		r.Sources = []SourceSummary{}
	}
	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	return json.Marshal(Alias(r))
}
