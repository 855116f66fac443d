package domain

// Pattern 标记文件名命中的解析模式。
type Pattern int

const (
	PatternUnknown Pattern = iota
	PatternStandard
	PatternAlternative
	PatternSimple
	// PatternDisplay 是本工具自己产出的展示名（"Name [UPDATE x.yy][CUSA00012].pkg"），
	// 用于保证重复运行时得到 Skipped 而不是解析失败。
	PatternDisplay
)

func (p Pattern) String() string {
	switch p {
	case PatternStandard:
		return "standard"
	case PatternAlternative:
		return "alternative"
	case PatternSimple:
		return "simple"
	case PatternDisplay:
		return "display"
	default:
		return "unknown"
	}
}

// ParsedFilename 是一次文件名解析的结果，只生成一次，之后不再修改。
//
// 字段为空串表示“缺失”。
type ParsedFilename struct {
	TitleID    TitleID
	RawVersion string
	Pattern    Pattern

	// 以下字段仅 Standard/Alternative 会填充。
	Region        string // e.g. "UP0017"
	ContentLabel  string // e.g. "DCUOLPS4LIVE0001"
	SystemVersion string // V#### 的数字部分
	Part          string // 分卷后缀 "_N" 的数字部分
}

// HasVersion 表示文件名中是否带有版本 token。
func (p ParsedFilename) HasVersion() bool { return p.RawVersion != "" }
