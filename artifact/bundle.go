// Package artifact 持有离线训练产出的模型包：用户/商品编码器、隐因子矩阵 U/V、
// item-item 相似度矩阵和热门榜。模型包加载后只读，可被任意多个请求并发读取；
// 热更新通过 Holder 整包原子替换。
package artifact

import (
	"fmt"
	"time"
)

// Key 是模型包中的顶层字段名。
type Key string

const (
	KeyUserEncoder      Key = "user_encoder"
	KeyProductEncoder   Key = "product_encoder"
	KeyU                Key = "U"
	KeyV                Key = "V"
	KeySimilarity       Key = "content_similarity"
	KeySparseSimilarity Key = "content_similarity_sparse"
	KeyContentPID2Idx   Key = "content_pid2idx"
	KeyContentIdx2PID   Key = "content_idx2pid"
	KeyPopRank          Key = "pop_rank"
)

// AllKeys 按文档顺序列出全部已知字段。
var AllKeys = []Key{
	KeyUserEncoder, KeyProductEncoder, KeyU, KeyV,
	KeySimilarity, KeySparseSimilarity, KeyContentPID2Idx, KeyContentIdx2PID,
	KeyPopRank,
}

// ParseKeys 把配置中的字段名转换为 Key，未知字段名返回错误。
func ParseKeys(names []string) ([]Key, error) {
	keys := make([]Key, 0, len(names))
	for _, n := range names {
		k := Key(n)
		known := false
		for _, ak := range AllKeys {
			if ak == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("artifact: unknown key %q", n)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Document 是模型包的序列化形态（JSON）。
// 每个字段都可以缺失；缺失的部分对应的召回源不可用。
type Document struct {
	UserEncoder      []string             `json:"user_encoder,omitempty"`
	ProductEncoder   []string             `json:"product_encoder,omitempty"`
	U                [][]float64          `json:"U,omitempty"`
	V                [][]float64          `json:"V,omitempty"`
	Similarity       [][]float64          `json:"content_similarity,omitempty"`
	SparseSimilarity []map[string]float64 `json:"content_similarity_sparse,omitempty"`
	ContentPID2Idx   map[string]int       `json:"content_pid2idx,omitempty"`
	ContentIdx2PID   []string             `json:"content_idx2pid,omitempty"`
	PopRank          []string             `json:"pop_rank,omitempty"`
}

func (d *Document) has(k Key) bool {
	switch k {
	case KeyUserEncoder:
		return d.UserEncoder != nil
	case KeyProductEncoder:
		return d.ProductEncoder != nil
	case KeyU:
		return d.U != nil
	case KeyV:
		return d.V != nil
	case KeySimilarity:
		return d.Similarity != nil
	case KeySparseSimilarity:
		return d.SparseSimilarity != nil
	case KeyContentPID2Idx:
		return d.ContentPID2Idx != nil
	case KeyContentIdx2PID:
		return d.ContentIdx2PID != nil
	case KeyPopRank:
		return d.PopRank != nil
	}
	return false
}

// Bundle 是解码并校验后的模型包。所有字段可以独立为 nil。
//
// 不变量：
//   - HasCollaborative() 为 true 时，U.Cols() == V.Cols()，
//     V.Rows() == ProductEncoder.Len()，U.Rows() == UserEncoder.Len()
//   - HasContent() 为 true 时，Similarity 是 ContentIndex.Len() 阶方阵
type Bundle struct {
	UserEncoder    *Encoder
	ProductEncoder *Encoder
	U              *Matrix
	V              *Matrix

	// Similarity 与 ContentIndex 构成内容相似度空间，下标体系独立于 ProductEncoder
	Similarity   Similarity
	ContentIndex *Encoder

	// PopRank 是训练时的热门榜，最热在前
	PopRank []string

	Source   string
	LoadedAt time.Time

	missing  []Key
	warnings []string
}

// HasCollaborative 判断协同过滤所需的编码器和矩阵是否齐全。
func (b *Bundle) HasCollaborative() bool {
	return b != nil && b.UserEncoder != nil && b.ProductEncoder != nil && b.U != nil && b.V != nil
}

// HasContent 判断内容相似度是否可用。
func (b *Bundle) HasContent() bool {
	return b != nil && b.Similarity != nil && b.ContentIndex != nil
}

// Missing 返回文档中缺失的字段。
func (b *Bundle) Missing() []Key {
	if b == nil {
		return AllKeys
	}
	return append([]Key(nil), b.missing...)
}

// Warnings 返回解码时因形状不一致而被禁用的部分及原因。
func (b *Bundle) Warnings() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.warnings...)
}

func (b *Bundle) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// FromDocument 把序列化文档转换为 Bundle。
//
// 只有两种情况返回 *LoadError：文档里一个已知字段都没有，或 required 中的字段缺失。
// 形状不一致（矩阵不等宽、编码器重复、行数对不上）只禁用对应部分并记录 warning，
// 调用方仍然拿到可用的降级模型包。
func FromDocument(source string, doc *Document, required ...Key) (*Bundle, error) {
	if doc == nil {
		return nil, &LoadError{Source: source, Reason: "empty document"}
	}
	b := &Bundle{Source: source, LoadedAt: time.Now()}
	present := 0
	for _, k := range AllKeys {
		if doc.has(k) {
			present++
		} else {
			b.missing = append(b.missing, k)
		}
	}
	if present == 0 {
		return nil, &LoadError{Source: source, Reason: "no known keys in bundle"}
	}
	for _, k := range required {
		if !doc.has(k) {
			return nil, &LoadError{Source: source, Reason: fmt.Sprintf("missing required key %q", k)}
		}
	}

	b.buildCollaborative(doc)
	b.buildContent(doc)
	if doc.PopRank != nil {
		b.PopRank = append([]string(nil), doc.PopRank...)
	}
	return b, nil
}

func (b *Bundle) buildCollaborative(doc *Document) {
	var err error
	if doc.UserEncoder != nil {
		if b.UserEncoder, err = NewEncoder(doc.UserEncoder); err != nil {
			b.warnf("user_encoder disabled: %v", err)
		}
	}
	if doc.ProductEncoder != nil {
		if b.ProductEncoder, err = NewEncoder(doc.ProductEncoder); err != nil {
			b.warnf("product_encoder disabled: %v", err)
		}
	}
	if doc.U == nil || doc.V == nil {
		return
	}
	u, err := NewMatrix(doc.U)
	if err != nil {
		b.warnf("U disabled: %v", err)
		return
	}
	v, err := NewMatrix(doc.V)
	if err != nil {
		b.warnf("V disabled: %v", err)
		return
	}
	switch {
	case u.Cols() != v.Cols():
		b.warnf("collaborative disabled: U has %d factors, V has %d", u.Cols(), v.Cols())
		return
	case b.ProductEncoder != nil && v.Rows() != b.ProductEncoder.Len():
		b.warnf("collaborative disabled: V has %d rows, product_encoder has %d ids", v.Rows(), b.ProductEncoder.Len())
		return
	case b.UserEncoder != nil && u.Rows() != b.UserEncoder.Len():
		b.warnf("collaborative disabled: U has %d rows, user_encoder has %d ids", u.Rows(), b.UserEncoder.Len())
		return
	}
	b.U, b.V = u, v
}

func (b *Bundle) buildContent(doc *Document) {
	var (
		sim Similarity
		err error
	)
	switch {
	case doc.Similarity != nil:
		sim, err = NewDenseSimilarity(doc.Similarity)
	case doc.SparseSimilarity != nil:
		sim, err = NewSparseSimilarity(doc.SparseSimilarity)
	default:
		return
	}
	if err != nil {
		b.warnf("content disabled: %v", err)
		return
	}

	index, err := contentIndex(doc)
	if err != nil {
		b.warnf("content disabled: %v", err)
		return
	}
	if index == nil {
		b.warnf("content disabled: no content_idx2pid / content_pid2idx")
		return
	}
	if index.Len() != sim.Len() {
		b.warnf("content disabled: similarity has %d rows, content index has %d ids", sim.Len(), index.Len())
		return
	}
	b.Similarity, b.ContentIndex = sim, index
}

// contentIndex 以 idx2pid 为准构建下标；只有 pid2idx 时要求其下标连续。
func contentIndex(doc *Document) (*Encoder, error) {
	if doc.ContentIdx2PID != nil {
		enc, err := NewEncoder(doc.ContentIdx2PID)
		if err != nil {
			return nil, err
		}
		for pid, idx := range doc.ContentPID2Idx {
			if got, ok := enc.Index(pid); !ok || got != idx {
				return nil, fmt.Errorf("content_pid2idx[%q]=%d disagrees with content_idx2pid", pid, idx)
			}
		}
		return enc, nil
	}
	if doc.ContentPID2Idx == nil {
		return nil, nil
	}
	ids := make([]string, len(doc.ContentPID2Idx))
	for pid, idx := range doc.ContentPID2Idx {
		if idx < 0 || idx >= len(ids) || ids[idx] != "" {
			return nil, fmt.Errorf("content_pid2idx is not contiguous at %q=%d", pid, idx)
		}
		ids[idx] = pid
	}
	return NewEncoder(ids)
}
