package gamedb

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// 表头归一化后（小写、去掉非字母数字）的列名别名。
var (
	htmlIDHeaders      = []string{"titleid", "cusa", "id"}
	htmlNameHeaders    = []string{"titlename", "name", "title", "gamename"}
	htmlVersionHeaders = []string{"version", "latestversion"}
)

// ParseHTML 从 HTML 页面中找到第一个同时含有 title id 列与标题列的 <table> 并逐行读取。
func ParseHTML(data []byte) ([]RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, malformed("HTML 解析失败：%v", err)
	}

	var (
		out   []RawRecord
		found bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() == 0 {
			return true
		}

		header := cellTexts(rows.First())
		idCol := findHeader(header, htmlIDHeaders)
		nameCol := findHeader(header, htmlNameHeaders)
		if idCol < 0 || nameCol < 0 {
			return true
		}
		verCol := findHeader(header, htmlVersionHeaders)

		found = true
		out = make([]RawRecord, 0, rows.Length()-1)
		rows.Slice(1, goquery.ToEnd).Each(func(_ int, tr *goquery.Selection) {
			cells := cellTexts(tr)
			if len(cells) == 0 {
				return
			}
			out = append(out, RawRecord{
				ID:      cellAt(cells, idCol),
				Name:    cellAt(cells, nameCol),
				Version: cellAt(cells, verCol),
			})
		})
		return false
	})

	if !found {
		return nil, malformed("HTML 中没有包含 Title ID / Title Name 列的表格")
	}
	return out, nil
}

func cellTexts(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		cells = append(cells, normSpace(c.Text()))
	})
	return cells
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func findHeader(header []string, aliases []string) int {
	for i, h := range header {
		key := normHeader(h)
		for _, a := range aliases {
			if key == a {
				return i
			}
		}
	}
	return -1
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func normHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
