package artifact

import "sync/atomic"

// Holder 持有当前生效的模型包。替换是整包指针交换：
// 进行中的请求要么看到完整的旧包，要么看到完整的新包。
// 请求应在开始时调用一次 Current，之后只使用这份引用。
type Holder struct {
	p atomic.Pointer[Bundle]
}

// NewHolder 创建 Holder，b 可以为 nil（降级模式）。
func NewHolder(b *Bundle) *Holder {
	h := &Holder{}
	if b != nil {
		h.p.Store(b)
	}
	return h
}

// Current 返回当前模型包，未加载时返回 nil。
func (h *Holder) Current() *Bundle {
	if h == nil {
		return nil
	}
	return h.p.Load()
}

// Swap 替换模型包并返回旧包。
func (h *Holder) Swap(b *Bundle) *Bundle {
	return h.p.Swap(b)
}

// Loaded 判断是否有可用模型包。
func (h *Holder) Loaded() bool {
	return h.Current() != nil
}
