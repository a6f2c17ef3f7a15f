package recall

import (
	"container/heap"
	"math"
	"sort"
)

// better 定义召回内部的全序：分数降序，同分时下标小的在前。
func better(scores []float64, i, j int) bool {
	if scores[i] != scores[j] {
		return scores[i] > scores[j]
	}
	return i < j
}

// usable 过滤掉被屏蔽（-Inf）和数值异常（NaN）的分数。
func usable(s float64) bool {
	return !math.IsNaN(s) && !math.IsInf(s, -1)
}

// worstFirst 是以“最差”为堆顶的小顶堆，用于流式保留前 k 个下标。
type worstFirst struct {
	scores []float64
	idx    []int
}

func (h *worstFirst) Len() int           { return len(h.idx) }
func (h *worstFirst) Less(a, b int) bool { return better(h.scores, h.idx[b], h.idx[a]) }
func (h *worstFirst) Swap(a, b int)      { h.idx[a], h.idx[b] = h.idx[b], h.idx[a] }
func (h *worstFirst) Push(x any)         { h.idx = append(h.idx, x.(int)) }
func (h *worstFirst) Pop() any {
	n := len(h.idx)
	x := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return x
}

// topIndices 返回 scores 中最好的 k 个下标（按 better 排好序）。
// skip 返回 true 的下标以及不可用分数不参与排序。
func topIndices(scores []float64, k int, skip func(i int) bool) []int {
	if k <= 0 || len(scores) == 0 {
		return nil
	}
	h := &worstFirst{scores: scores, idx: make([]int, 0, min(k, len(scores)))}
	for i, s := range scores {
		if !usable(s) || (skip != nil && skip(i)) {
			continue
		}
		if h.Len() < k {
			heap.Push(h, i)
			continue
		}
		if better(scores, i, h.idx[0]) {
			h.idx[0] = i
			heap.Fix(h, 0)
		}
	}
	out := h.idx
	sort.Slice(out, func(a, b int) bool { return better(scores, out[a], out[b]) })
	return out
}
