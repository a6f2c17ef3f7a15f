package core

// Product 是商品目录中的展示记录。
// 数值字段在目录加载时已清洗（去掉 ₹、逗号、% 等），缺失值为 0。
type Product struct {
	ProductID          string   `json:"product_id"`
	Name               string   `json:"product_name"`
	Category           string   `json:"category"`
	CategoryPath       []string `json:"category_path"`
	CategoryLeaf       string   `json:"category_leaf"`
	CategoryTop        string   `json:"category_top"`
	DiscountedPrice    float64  `json:"discounted_price"`
	ActualPrice        float64  `json:"actual_price"`
	DiscountPercentage float64  `json:"discount_percentage"`
	Rating             float64  `json:"rating"`
	RatingCount        int      `json:"rating_count"`
	About              string   `json:"about_product"`
	ImageLink          string   `json:"img_link"`
	ProductLink        string   `json:"product_link"`
}

// 目录可选列名，Catalog.HasField 使用。
const (
	FieldRating          = "rating"
	FieldRatingCount     = "rating_count"
	FieldDiscountedPrice = "discounted_price"
	FieldActualPrice     = "actual_price"
)

// Catalog 是商品目录的领域接口，由 catalog 包实现。
// 实现需要在加载完成后只读，允许并发访问。
type Catalog interface {
	// Lookup 按商品 ID 查展示记录
	Lookup(id string) (*Product, bool)

	// Contains 判断商品是否仍在当前目录中
	Contains(id string) bool

	// Products 按加载顺序返回全部商品，调用方不得修改
	Products() []*Product

	// Len 返回商品数量
	Len() int

	// HasField 判断目录是否带有某个可选列（rating / rating_count 等）
	HasField(name string) bool
}

// AsMap 把商品记录转成 map，供 CEL 表达式访问。
func (p *Product) AsMap() map[string]any {
	if p == nil {
		return map[string]any{}
	}
	path := make([]any, 0, len(p.CategoryPath))
	for _, seg := range p.CategoryPath {
		path = append(path, seg)
	}
	return map[string]any{
		"product_id":          p.ProductID,
		"product_name":        p.Name,
		"category":            p.Category,
		"category_path":       path,
		"category_leaf":       p.CategoryLeaf,
		"category_top":        p.CategoryTop,
		"discounted_price":    p.DiscountedPrice,
		"actual_price":        p.ActualPrice,
		"discount_percentage": p.DiscountPercentage,
		"rating":              p.Rating,
		"rating_count":        int64(p.RatingCount),
	}
}
