package naming

import (
	"strings"

	"github.com/John-Robertt/ps4ren/internal/domain"
)

// Ext 是输出文件名的扩展名。
const Ext = ".pkg"

// Compose 拼装未清理的候选文件名。
//
//	"{TitleName} [UPDATE {version}][{TitleID}].pkg"
//	"{TitleName} [{TitleID}].pkg"            // version 为空
//	"{TitleName} [{TitleID}]_Part{N}.pkg"    // part 非空
//
// version 须已是展示形式（见 version.Normalize）。
func Compose(titleName, version string, id domain.TitleID, part string) string {
	var b strings.Builder
	b.WriteString(titleName)
	if version != "" {
		b.WriteString(" [UPDATE ")
		b.WriteString(version)
		b.WriteString("]")
	} else {
		b.WriteString(" ")
	}
	b.WriteString("[")
	b.WriteString(id.String())
	b.WriteString("]")
	if part != "" {
		b.WriteString("_Part")
		b.WriteString(part)
	}
	b.WriteString(Ext)
	return b.String()
}
