package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/John-Robertt/ps4ren/internal/domain"
	"github.com/John-Robertt/ps4ren/internal/gamedb"
)

// ReportPrefix 是运行报告的文件名前缀；数据源发现会跳过它们。
const ReportPrefix = "ps4_rename_report_"

// ExportOutput 是 export 命令的默认输出文件名；它不是数据源，发现时跳过。
const ExportOutput = "ps4_titles_with_updates_corrected.json"

// ScanPackages 列出 root 下（不递归）的 .pkg 文件，按文件名字典序返回。
//
// 扩展名大小写不敏感；只收普通文件。扫描阶段只做 stat，不读文件内容。
func ScanPackages(fs afero.Fs, root string) ([]domain.PkgFile, error) {
	root = filepath.Clean(root)
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, err
	}

	files := make([]domain.PkgFile, 0, len(entries))
	for _, fi := range entries {
		if !fi.Mode().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(fi.Name()), ".pkg") {
			continue
		}
		files = append(files, domain.PkgFile{
			AbsPath: filepath.Join(root, fi.Name()),
			Name:    fi.Name(),
			Size:    fi.Size(),
			ModUnix: fi.ModTime().Unix(),
		})
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Names 提取文件名序列（规划器的输入）。
func Names(files []domain.PkgFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

// DiscoverSources 在 dir 下（不递归）发现数据源文件。
//
// 顺序：按 reg 的注册顺序分组（CSV、JSON、HTML），组内按文件名字典序。
// 跳过：运行报告 ps4_rename_report_*、export 默认输出，以及 exclude 中列出的路径（例如配置文件）。
// dir 不存在时返回空列表。
func DiscoverSources(fs afero.Fs, dir string, reg gamedb.Registry, exclude []string) ([]string, error) {
	dir = filepath.Clean(dir)
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, x := range exclude {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if abs, err := filepath.Abs(x); err == nil {
			skip[abs] = struct{}{}
		}
		skip[filepath.Clean(x)] = struct{}{}
	}

	groups := make(map[domain.SourceOrigin][]string)
	for _, fi := range entries {
		if !fi.Mode().IsRegular() {
			continue
		}
		name := fi.Name()
		if strings.HasPrefix(name, ReportPrefix) || name == ExportOutput {
			continue
		}
		p := filepath.Join(dir, name)
		if isSkipped(p, skip) {
			continue
		}
		origin, ok := reg.OriginForPath(name)
		if !ok {
			continue
		}
		groups[origin] = append(groups[origin], p)
	}

	var out []string
	for _, o := range reg.Origins() {
		g := groups[o]
		sort.Strings(g)
		out = append(out, g...)
	}
	return out, nil
}

func isSkipped(p string, skip map[string]struct{}) bool {
	if _, ok := skip[filepath.Clean(p)]; ok {
		return true
	}
	if abs, err := filepath.Abs(p); err == nil {
		if _, ok := skip[abs]; ok {
			return true
		}
	}
	return false
}
