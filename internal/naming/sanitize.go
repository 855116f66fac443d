// Package naming 负责生成目标文件名：拼装展示名并清理出文件系统安全的结果。
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// illegal 是在任何主流文件系统上都不能出现在文件名里的字符。
const illegal = `<>:"/\|?*`

// Sanitize 清理候选文件名，幂等：Sanitize(Sanitize(x)) == Sanitize(x)。
//
// 处理顺序：
//   - 丢弃非法 UTF-8 字节
//   - 删除 < > : " / \ | ? *，控制字符替换为空格
//   - 连续空白折叠成一个空格并去掉首尾空白
//   - NFC 规范化
func Sanitize(name string) string {
	name = strings.ToValidUTF8(name, "")
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegal, r) {
			return -1
		}
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	return norm.NFC.String(name)
}
