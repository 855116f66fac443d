package gamedb

import (
	"bytes"
	"encoding/json"
	"strings"
)

type jsonDoc struct {
	Results *[]jsonResult `json:"results"`
}

type jsonResult struct {
	Status        string     `json:"status"`
	TitleID       flexString `json:"title_id"`
	TitleName     flexString `json:"title_name"`
	SonyGameName  flexString `json:"sony_game_name"`
	LatestVersion flexString `json:"latest_version"`
}

// flexString 兼容数据源里偶尔以数字形式出现的字段（例如 latest_version: 1.5）。
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// ParseJSON 解析形如 {"results":[{...}]} 的 JSON 数据源。
//
// 只有 status=="found" 的元素参与；title_name 缺失时回退到 sony_game_name。
func ParseJSON(data []byte) ([]RawRecord, error) {
	var doc jsonDoc
	if err := json.Unmarshal(bytes.TrimPrefix(data, utf8BOM), &doc); err != nil {
		return nil, malformed("JSON 解析失败：%v", err)
	}
	if doc.Results == nil {
		return nil, malformed("JSON 缺少 results 字段")
	}

	out := make([]RawRecord, 0, len(*doc.Results))
	for _, r := range *doc.Results {
		if r.Status != "found" {
			continue
		}
		name := strings.TrimSpace(string(r.TitleName))
		if name == "" {
			name = strings.TrimSpace(string(r.SonyGameName))
		}
		out = append(out, RawRecord{
			ID:      string(r.TitleID),
			Name:    name,
			Version: string(r.LatestVersion),
		})
	}
	return out, nil
}
