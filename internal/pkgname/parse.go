package pkgname

import (
	"regexp"
	"strings"

	"github.com/John-Robertt/ps4ren/internal/domain"
)

// ReasonNoMatch 是所有模式都未命中时的失败原因。
const ReasonNoMatch = "no pattern matched"

// 模式按优先级排列：Standard > Alternative > Simple > Display，先命中者胜出。
//
// Standard/Alternative 的结构相同：REGION-TITLEID[_##]-LABEL-A####[-V####][_N]，
// 区别只在 region 前缀（UP 为 Standard，其余两字母前缀为 Alternative）。
var (
	fullRE = regexp.MustCompile(`(?i)^([a-z]{2})([0-9]{4})-([a-z]{4}[0-9]{5})(?:_[0-9]{2})?-([a-z0-9]+)-A([0-9]{4})(?:-V([0-9]{4}))?(?:_([0-9]+))?$`)
	// Simple：TITLEID-<任意>-V<digits>，版本跟在字面量 V 之后。
	simpleRE = regexp.MustCompile(`(?i)^([a-z]{4}[0-9]{5})(?:_[0-9]{2})?-(.+)-V([0-9]+)$`)
	// Display：本工具产出的名字，最后尝试。
	displayRE = regexp.MustCompile(`(?i)^.*?\s*(?:\[UPDATE ([0-9][0-9.]*)\])?\[([a-z]{4}[0-9]{5})\](?:_Part([0-9]+))?$`)
	anyIDRE   = regexp.MustCompile(`(?i)[a-z]{4}[0-9]{5}`)
)

// Error 表示文件名无法被任何已知模式解析。
type Error struct {
	Filename string
	Reason   string
}

func (e *Error) Error() string {
	return "无法解析文件名 " + e.Filename + "：" + e.Reason
}

// Parse 从 .pkg 文件名中解析 title id 与版本 token（纯函数）。
// 若解析失败，返回 *Error。
func Parse(filename string) (domain.ParsedFilename, error) {
	base := stripPkgExt(strings.TrimSpace(filename))

	// 任何位置都没有 XXXX##### 片段：直接失败，不再尝试结构匹配。
	if !anyIDRE.MatchString(base) {
		return domain.ParsedFilename{}, &Error{Filename: filename, Reason: ReasonNoMatch}
	}

	if m := fullRE.FindStringSubmatch(base); m != nil {
		region := strings.ToUpper(m[1]) + m[2]
		pattern := domain.PatternAlternative
		if strings.EqualFold(m[1], "UP") {
			pattern = domain.PatternStandard
		}
		return domain.ParsedFilename{
			TitleID:       domain.TitleID(strings.ToUpper(m[3])),
			RawVersion:    m[5],
			Pattern:       pattern,
			Region:        region,
			ContentLabel:  strings.ToUpper(m[4]),
			SystemVersion: m[6],
			Part:          m[7],
		}, nil
	}

	if m := simpleRE.FindStringSubmatch(base); m != nil {
		return domain.ParsedFilename{
			TitleID:    domain.TitleID(strings.ToUpper(m[1])),
			RawVersion: m[3],
			Pattern:    domain.PatternSimple,
		}, nil
	}

	if m := displayRE.FindStringSubmatch(base); m != nil {
		return domain.ParsedFilename{
			TitleID:    domain.TitleID(strings.ToUpper(m[2])),
			RawVersion: m[1],
			Pattern:    domain.PatternDisplay,
			Part:       m[3],
		}, nil
	}

	return domain.ParsedFilename{}, &Error{Filename: filename, Reason: ReasonNoMatch}
}

func stripPkgExt(name string) string {
	if len(name) >= 4 && strings.EqualFold(name[len(name)-4:], ".pkg") {
		return name[:len(name)-4]
	}
	return name
}
