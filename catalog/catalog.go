// Package catalog 提供内存商品目录：CSV 加载与字段清洗、按 ID 查找、搜索、条件筛选和统计。
// 目录加载完成后只读，可被并发请求共享。
package catalog

import (
	"strings"

	"github.com/rushteam/hybridrec/core"
)

// MemoryCatalog 是 core.Catalog 的内存实现。
type MemoryCatalog struct {
	products []*core.Product
	byID     map[string]*core.Product
	fields   map[string]struct{}
}

// New 由商品列表构造目录，重复的 ProductID 保留第一次出现的记录，空 ID 被丢弃。
// fields 声明目录带有哪些可选列（core.FieldRating 等）。
func New(products []*core.Product, fields ...string) *MemoryCatalog {
	c := &MemoryCatalog{
		products: make([]*core.Product, 0, len(products)),
		byID:     make(map[string]*core.Product, len(products)),
		fields:   make(map[string]struct{}, len(fields)),
	}
	for _, f := range fields {
		c.fields[f] = struct{}{}
	}
	for _, p := range products {
		if p == nil || p.ProductID == "" {
			continue
		}
		if _, dup := c.byID[p.ProductID]; dup {
			continue
		}
		c.byID[p.ProductID] = p
		c.products = append(c.products, p)
	}
	return c
}

func (c *MemoryCatalog) Lookup(id string) (*core.Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *MemoryCatalog) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

func (c *MemoryCatalog) Products() []*core.Product {
	return c.products
}

func (c *MemoryCatalog) Len() int {
	return len(c.products)
}

func (c *MemoryCatalog) HasField(name string) bool {
	_, ok := c.fields[name]
	return ok
}

// Search 返回名称或任一类目段包含 q（大小写不敏感）的商品，最多 limit 个（<= 0 不限），
// 第二个返回值是命中总数。
func (c *MemoryCatalog) Search(q string, limit int) ([]*core.Product, int) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []*core.Product{}, 0
	}
	out := make([]*core.Product, 0)
	total := 0
	for _, p := range c.products {
		if !strings.Contains(strings.ToLower(p.Name), q) && !matchesPath(p, q) {
			continue
		}
		total++
		if limit <= 0 || len(out) < limit {
			out = append(out, p)
		}
	}
	return out, total
}

// Query 是目录筛选条件，nil 指针表示不限制。
type Query struct {
	// Category 匹配任一类目段（包含，大小写不敏感）
	Category  string
	MinPrice  *float64
	MaxPrice  *float64
	MinRating *float64
}

// Filter 按 Query 筛选商品，保持加载顺序。
func (c *MemoryCatalog) Filter(q Query) []*core.Product {
	kw := strings.ToLower(strings.TrimSpace(q.Category))
	out := make([]*core.Product, 0)
	for _, p := range c.products {
		if kw != "" && !matchesPath(p, kw) {
			continue
		}
		if q.MinPrice != nil && p.DiscountedPrice < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.DiscountedPrice > *q.MaxPrice {
			continue
		}
		if q.MinRating != nil && p.Rating < *q.MinRating {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesPath(p *core.Product, kw string) bool {
	for _, seg := range p.CategoryPath {
		if strings.Contains(strings.ToLower(seg), kw) {
			return true
		}
	}
	return false
}

var _ core.Catalog = (*MemoryCatalog)(nil)
