// Package version 把文件名或数据源中的原始版本 token 规范化为展示形式。
package version

import (
	"strconv"
	"strings"
)

// Normalize 把原始版本 token 转成展示形式。
//
// 规则（按顺序）：
// - 已含 '.'（例如 "1.50"、"01.10"）：原样返回
// - 3~4 位纯数字：末两位为小数部分，其余为整数部分（"0283" -> "2.83"，"0110" -> "1.10"）
// - 其他（空、非数字、长度不符）：返回 ok=false，调用方应省略 [UPDATE ...] 段
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.Contains(raw, ".") {
		return raw, true
	}
	if len(raw) < 3 || len(raw) > 4 || !allDigits(raw) {
		return "", false
	}

	major, err := strconv.Atoi(raw[:len(raw)-2])
	if err != nil {
		return "", false
	}
	return strconv.Itoa(major) + "." + raw[len(raw)-2:], true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
