package hybrid

import (
	"math"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/utils"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/rerank"
)

// 信号源顺序，同分时先出现的信号源在前
const (
	orderCollaborative = iota
	orderContent
)

// scoreMap 是单次请求的融合分数表，分数在各信号源之间累加。
// 第一个贡献某商品的信号源及其位置写进 Meta，供 rerank.RankNode 同分排序。
type scoreMap struct {
	byID map[string]*core.Item
	list []*core.Item
}

func newScoreMap(capacity int) *scoreMap {
	return &scoreMap{
		byID: make(map[string]*core.Item, capacity),
		list: make([]*core.Item, 0, capacity),
	}
}

func (m *scoreMap) add(id string, score float64, order, pos int, source string) {
	it, ok := m.byID[id]
	if !ok {
		it = core.NewItem(id)
		it.Meta[rerank.MetaSourceOrder] = order
		it.Meta[rerank.MetaSourcePos] = pos
		m.byID[id] = it
		m.list = append(m.list, it)
	}
	it.Score += score
	it.PutLabel(recall.LabelRecallSource, utils.RecallLabel(source))
}

func (m *scoreMap) len() int { return len(m.list) }

// items 按首次出现顺序返回候选，未排序。
func (m *scoreMap) items() []*core.Item { return m.list }

// addCollaborative 按排名给分：alpha / (rank+1)。只看相对位置，不看点积大小。
func (m *scoreMap) addCollaborative(items []*core.Item, alpha float64) {
	for rank, it := range items {
		m.add(it.ID, alpha/float64(rank+1), orderCollaborative, rank, recall.SourceCollaborative)
	}
}

// addContent 把累加相似度除以本批最大值归一化到 [0,1]，再乘 (1-alpha)。
// 最大值不为正时所有内容候选贡献 0。
func (m *scoreMap) addContent(items []*core.Item, alpha float64) {
	maxScore := math.Inf(-1)
	for _, it := range items {
		if it.Score > maxScore {
			maxScore = it.Score
		}
	}
	for pos, it := range items {
		norm := 0.0
		if maxScore > 0 {
			norm = it.Score / maxScore
		}
		m.add(it.ID, (1-alpha)*norm, orderContent, pos, recall.SourceContent)
	}
}

// clampAlpha 把 alpha 截断到 [0,1]，NaN 返回 def。
func clampAlpha(alpha, def float64) float64 {
	switch {
	case math.IsNaN(alpha):
		return def
	case alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}
	return alpha
}
