package domain

import (
	"regexp"
	"strings"
)

// TitleID 是游戏产品的唯一主键（规范化后形如 CUSA00012）。
//
// 约束：存储与查询前一律转大写，查询对数据源的大小写不敏感。
type TitleID string

var (
	titleIDRE       = regexp.MustCompile(`^[A-Z]{4}[0-9]{5}$`)
	titleIDSearchRE = regexp.MustCompile(`(?i)[a-z]{4}[0-9]{5}`)
)

// ParseTitleID 校验并规范化一个完整的 title id（允许任意大小写与首尾空白）。
func ParseTitleID(s string) (TitleID, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !titleIDRE.MatchString(s) {
		return "", false
	}
	return TitleID(s), true
}

// FindTitleID 在任意字符串中查找第一个 title id 片段。
// 数据源里的 Title_ID 常带有后缀（例如 "CUSA00012_00"），这里只取主键部分。
func FindTitleID(s string) (TitleID, bool) {
	m := titleIDSearchRE.FindString(s)
	if m == "" {
		return "", false
	}
	return TitleID(strings.ToUpper(m)), true
}

func (id TitleID) String() string { return string(id) }
