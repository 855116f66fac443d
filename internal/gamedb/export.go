package gamedb

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// linkRow 是下载链接 CSV 的一行。
type linkRow struct {
	TitleID     string `csv:"Title_ID"`
	TitleName   string `csv:"Title_Name"`
	Version     string `csv:"Version"`
	Filename    string `csv:"Filename"`
	DownloadURL string `csv:"Download_URL"`
	SizeBytes   string `csv:"Size_Bytes"`
	SHA1        string `csv:"SHA1_Hash"`
}

// Updates 是 export 输出的 JSON 结构。
type Updates struct {
	Updates  map[string]UpdateEntry `json:"updates"`
	Metadata UpdatesMetadata        `json:"metadata"`
}

type UpdateEntry struct {
	Name     string                  `json:"name"`
	Versions map[string]VersionFiles `json:"versions"`
}

type VersionFiles struct {
	Files []DownloadLink `json:"files"`
}

type DownloadLink struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	SHA1     string `json:"sha1"`
}

type UpdatesMetadata struct {
	TotalGames    int    `json:"total_games"`
	GeneratedFrom string `json:"generated_from"`
	Note          string `json:"note"`
}

const exportNote = "Versions extracted directly from CSV Version column"

// ExportUpdates 把下载链接 CSV 按 Title_ID、Version 分组为 updates 结构。
//
// Title_ID 原样作为键；标题取该 id 第一次出现时的 Title_Name。Size_Bytes 为空或非法时记 0。
func ExportUpdates(r io.Reader, generatedFrom string) (Updates, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Updates{}, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := checkCSVHeader(data, []string{"Title_ID", "Title_Name", "Version", "Filename", "Download_URL"}); err != nil {
		return Updates{}, err
	}

	var rows []linkRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return Updates{}, malformed("CSV 解析失败：%v", err)
	}

	out := Updates{
		Updates: make(map[string]UpdateEntry),
		Metadata: UpdatesMetadata{
			GeneratedFrom: generatedFrom,
			Note:          exportNote,
		},
	}
	for _, row := range rows {
		id := strings.TrimSpace(row.TitleID)
		if id == "" {
			continue
		}
		entry, ok := out.Updates[id]
		if !ok {
			entry = UpdateEntry{Name: strings.TrimSpace(row.TitleName), Versions: make(map[string]VersionFiles)}
		}

		ver := strings.TrimSpace(row.Version)
		vf := entry.Versions[ver]
		size, _ := strconv.ParseInt(strings.TrimSpace(row.SizeBytes), 10, 64)
		vf.Files = append(vf.Files, DownloadLink{
			Filename: row.Filename,
			URL:      row.DownloadURL,
			Size:     size,
			SHA1:     row.SHA1,
		})
		entry.Versions[ver] = vf
		out.Updates[id] = entry
	}
	out.Metadata.TotalGames = len(out.Updates)
	return out, nil
}
