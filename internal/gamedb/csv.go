package gamedb

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// csvRow 对应数据源 CSV 的核心列；其余列（Filename、Download_URL、Size_Bytes、SHA1_Hash）忽略。
type csvRow struct {
	TitleID   string `csv:"Title_ID"`
	TitleName string `csv:"Title_Name"`
	Version   string `csv:"Version"`
}

var csvRequired = []string{"Title_ID", "Title_Name", "Version"}

// ParseCSV 解析带表头的 CSV 数据源。
func ParseCSV(data []byte) ([]RawRecord, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if err := checkCSVHeader(data, csvRequired); err != nil {
		return nil, err
	}

	var rows []csvRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, malformed("CSV 解析失败：%v", err)
	}

	out := make([]RawRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, RawRecord{ID: r.TitleID, Name: r.TitleName, Version: r.Version})
	}
	return out, nil
}

func checkCSVHeader(data []byte, required []string) error {
	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return malformed("CSV 为空")
		}
		return malformed("CSV 表头无法读取：%v", err)
	}

	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range required {
		if !have[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return malformed("CSV 缺少列 %s", strings.Join(missing, ", "))
	}
	return nil
}
