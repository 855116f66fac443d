package gamedb

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/John-Robertt/ps4ren/internal/domain"
)

// minSuggestSimilarity 以下的候选不给出建议。
const minSuggestSimilarity = 0.8

// Suggest 返回与 id 最相近的至多 n 个已知 TitleID（Jaro-Winkler，相似度降序，同分按插入顺序）。
// 只用于丰富 LookupMiss 的诊断信息，不参与命名。
func (db *Database) Suggest(id domain.TitleID, n int) []domain.TitleID {
	if db == nil || n <= 0 || len(db.order) == 0 {
		return nil
	}
	query := strings.ToUpper(strings.TrimSpace(string(id)))

	type scored struct {
		id  domain.TitleID
		sim float32
	}
	var matches []scored
	for _, cand := range db.order {
		if string(cand) == query {
			continue
		}
		sim := edlib.JaroWinklerSimilarity(query, string(cand))
		if sim >= minSuggestSimilarity {
			matches = append(matches, scored{id: cand, sim: sim})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].sim > matches[j].sim })

	if len(matches) > n {
		matches = matches[:n]
	}
	out := make([]domain.TitleID, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.id)
	}
	return out
}
