package domain

// Outcome 是单个文件的规划结论。
type Outcome string

const (
	OutcomeRenamed Outcome = "renamed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeError   Outcome = "error"
)

// RenameDecision 是规划器对单个输入文件名的决策（创建后不再修改）。
//
// NewName 仅在 Renamed 时非空；Reason 仅在 Skipped/Error 时非空。
type RenameDecision struct {
	Original string
	Outcome  Outcome
	NewName  string
	Reason   string

	// ErrorCode 让上层把 Error 归类（parse_failed / lookup_miss / target_conflict）。
	ErrorCode string

	TitleID     TitleID
	Pattern     Pattern
	Version     string
	Suggestions []string
}

// Counts 是决策序列的聚合统计。
type Counts struct {
	Total   int `json:"total"`
	Renamed int `json:"renamed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Summarize 对决策序列做一次折叠，得到聚合统计。
func Summarize(decisions []RenameDecision) Counts {
	c := Counts{Total: len(decisions)}
	for i := range decisions {
		switch decisions[i].Outcome {
		case OutcomeRenamed:
			c.Renamed++
		case OutcomeSkipped:
			c.Skipped++
		case OutcomeError:
			c.Errors++
		}
	}
	return c
}
