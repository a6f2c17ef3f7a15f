package artifact

import (
	"fmt"
	"sort"
	"strconv"
)

// Matrix 是行优先存储的稠密矩阵，加载后只读。
type Matrix struct {
	rows int
	cols int
	data []float64
}

// NewMatrix 由二维切片构造矩阵，所有行必须等宽。
func NewMatrix(rows [][]float64) (*Matrix, error) {
	m := &Matrix{rows: len(rows)}
	if len(rows) == 0 {
		return m, nil
	}
	m.cols = len(rows[0])
	m.data = make([]float64, 0, m.rows*m.cols)
	for i, r := range rows {
		if len(r) != m.cols {
			return nil, fmt.Errorf("matrix: row %d has %d columns, want %d", i, len(r), m.cols)
		}
		m.data = append(m.data, r...)
	}
	return m, nil
}

func (m *Matrix) Rows() int {
	if m == nil {
		return 0
	}
	return m.rows
}

func (m *Matrix) Cols() int {
	if m == nil {
		return 0
	}
	return m.cols
}

// Row 返回第 i 行的视图，调用方不得修改。
func (m *Matrix) Row(i int) []float64 {
	if m == nil || i < 0 || i >= m.rows {
		return nil
	}
	return m.data[i*m.cols : (i+1)*m.cols]
}

// MulVecT 计算 v · Mᵗ，即 v 与每一行的点积，返回新切片。
// v 的长度必须等于列数，否则返回 nil。
func (m *Matrix) MulVecT(v []float64) []float64 {
	if m == nil || len(v) != m.cols {
		return nil
	}
	out := make([]float64, m.rows)
	for j := 0; j < m.rows; j++ {
		row := m.data[j*m.cols : (j+1)*m.cols]
		var sum float64
		for k, x := range row {
			sum += x * v[k]
		}
		out[j] = sum
	}
	return out
}

// Similarity 是 item-item 相似度矩阵的只读行访问接口。
// Row(i) 返回按 item 下标排列的分数向量，调用方不得修改。
type Similarity interface {
	Len() int
	Row(i int) []float64
}

// DenseSimilarity 是方阵存储的相似度矩阵。
type DenseSimilarity struct {
	m *Matrix
}

// NewDenseSimilarity 构造稠密相似度矩阵，要求是方阵。
func NewDenseSimilarity(rows [][]float64) (*DenseSimilarity, error) {
	m, err := NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	if m.Rows() != m.Cols() && m.Rows() > 0 {
		return nil, fmt.Errorf("similarity: matrix is %dx%d, want square", m.Rows(), m.Cols())
	}
	return &DenseSimilarity{m: m}, nil
}

func (s *DenseSimilarity) Len() int            { return s.m.Rows() }
func (s *DenseSimilarity) Row(i int) []float64 { return s.m.Row(i) }

// SparseSimilarity 只存非零项，缺失项按 0 读取。
type SparseSimilarity struct {
	n    int
	rows [][]sparseEntry
}

type sparseEntry struct {
	col   int
	score float64
}

// NewSparseSimilarity 由每行 {列下标: 分数} 构造稀疏相似度矩阵。
// 列下标以字符串给出（JSON 对象的 key），必须落在 [0, len(rows)) 内。
func NewSparseSimilarity(rows []map[string]float64) (*SparseSimilarity, error) {
	s := &SparseSimilarity{n: len(rows), rows: make([][]sparseEntry, len(rows))}
	for i, r := range rows {
		entries := make([]sparseEntry, 0, len(r))
		for k, v := range r {
			col, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("similarity: row %d: bad column %q", i, k)
			}
			if col < 0 || col >= s.n {
				return nil, fmt.Errorf("similarity: row %d: column %d out of range", i, col)
			}
			entries = append(entries, sparseEntry{col: col, score: v})
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].col < entries[b].col })
		s.rows[i] = entries
	}
	return s, nil
}

func (s *SparseSimilarity) Len() int { return s.n }

// Row 把稀疏行展开为稠密向量（每次调用都分配）。
func (s *SparseSimilarity) Row(i int) []float64 {
	if i < 0 || i >= s.n {
		return nil
	}
	out := make([]float64, s.n)
	for _, e := range s.rows[i] {
		out[e.col] = e.score
	}
	return out
}

var (
	_ Similarity = (*DenseSimilarity)(nil)
	_ Similarity = (*SparseSimilarity)(nil)
)
