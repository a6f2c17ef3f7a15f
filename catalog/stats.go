package catalog

import "github.com/rushteam/hybridrec/core"

// Stats 是目录概况。
type Stats struct {
	TotalProducts  int      `json:"total_products"`
	CategoriesLeaf int      `json:"categories_leaf"`
	CategoriesTop  int      `json:"categories_top"`
	AvgRating      *float64 `json:"avg_rating"`
	AvgPrice       *float64 `json:"avg_price"`
}

// ComputeStats 统计目录。某列不存在时对应的均值为 nil。
func ComputeStats(c core.Catalog) Stats {
	st := Stats{}
	if c == nil {
		return st
	}
	products := c.Products()
	st.TotalProducts = len(products)

	leaves := make(map[string]struct{})
	tops := make(map[string]struct{})
	var ratingSum, priceSum float64
	for _, p := range products {
		if p.CategoryLeaf != "" {
			leaves[p.CategoryLeaf] = struct{}{}
		}
		if p.CategoryTop != "" {
			tops[p.CategoryTop] = struct{}{}
		}
		ratingSum += p.Rating
		priceSum += p.DiscountedPrice
	}
	st.CategoriesLeaf = len(leaves)
	st.CategoriesTop = len(tops)

	if n := float64(len(products)); n > 0 {
		if c.HasField(core.FieldRating) {
			avg := ratingSum / n
			st.AvgRating = &avg
		}
		if c.HasField(core.FieldDiscountedPrice) {
			avg := priceSum / n
			st.AvgPrice = &avg
		}
	}
	return st
}
