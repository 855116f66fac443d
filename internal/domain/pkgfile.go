package domain

// PkgFile 描述一次扫描得到的 .pkg 文件（只做 stat，不读内容）。
//
// 不变量：
// - AbsPath 必须是 clean + absolute
// - Name 是带扩展名的文件名，规划阶段只看 Name
type PkgFile struct {
	AbsPath string
	Name    string
	Size    int64
	ModUnix int64
}
