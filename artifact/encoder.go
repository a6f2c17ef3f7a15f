package artifact

import "fmt"

// Encoder 是外部 ID 与稠密整数下标之间的双向映射。
// 下标从 0 开始连续编号；训练时没见过的 ID 没有下标（冷启动）。
// nil Encoder 视为空编码器。
type Encoder struct {
	ids   []string
	index map[string]int
}

// NewEncoder 按 ids 的顺序分配下标（与训练时 LabelEncoder.classes_ 的顺序一致）。
// 空 ID 或重复 ID 返回错误。
func NewEncoder(ids []string) (*Encoder, error) {
	e := &Encoder{
		ids:   make([]string, len(ids)),
		index: make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("encoder: empty id at index %d", i)
		}
		if prev, ok := e.index[id]; ok {
			return nil, fmt.Errorf("encoder: duplicate id %q at index %d and %d", id, prev, i)
		}
		e.index[id] = i
		e.ids[i] = id
	}
	return e, nil
}

// Index 返回 ID 的下标，未知 ID 返回 (0, false)。
func (e *Encoder) Index(id string) (int, bool) {
	if e == nil {
		return 0, false
	}
	i, ok := e.index[id]
	return i, ok
}

// ID 返回下标对应的 ID，越界返回 ("", false)。
func (e *Encoder) ID(i int) (string, bool) {
	if e == nil || i < 0 || i >= len(e.ids) {
		return "", false
	}
	return e.ids[i], true
}

// Contains 判断 ID 是否在编码器中。
func (e *Encoder) Contains(id string) bool {
	_, ok := e.Index(id)
	return ok
}

// Len 返回编码器基数。
func (e *Encoder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.ids)
}

// IDs 返回按下标排列的 ID 副本。
func (e *Encoder) IDs() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.ids))
	copy(out, e.ids)
	return out
}
