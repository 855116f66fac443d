package domain

import "strings"

// SourceOrigin 标记记录来自哪种数据源。
type SourceOrigin string

const (
	OriginCSV  SourceOrigin = "csv"
	OriginJSON SourceOrigin = "json"
	OriginHTML SourceOrigin = "html"
)

// ParseOrigin 把格式名（大小写不敏感）解析为 SourceOrigin。
func ParseOrigin(s string) (SourceOrigin, bool) {
	switch SourceOrigin(strings.ToLower(strings.TrimSpace(s))) {
	case OriginCSV:
		return OriginCSV, true
	case OriginJSON:
		return OriginJSON, true
	case OriginHTML, "htm":
		return OriginHTML, true
	default:
		return "", false
	}
}

// GameRecord 是数据库中某个 TitleID 的权威记录。
//
// 约束：
// - TitleID 已大写规范化，且是库内唯一键
// - LatestVersion 已经过 version.Normalize；为空表示没有版本
type GameRecord struct {
	TitleID       TitleID      `validate:"required,titleid"`
	TitleName     string       `validate:"required"`
	LatestVersion string       `validate:"omitempty,max=16"`
	Origin        SourceOrigin `validate:"required,oneof=csv json html"`
	SourceName    string
}
