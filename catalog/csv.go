package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/pkg/conv"
)

// CSV 列名
const (
	ColProductID          = "product_id"
	ColProductName        = "product_name"
	ColCategory           = "category"
	ColDiscountedPrice    = "discounted_price"
	ColActualPrice        = "actual_price"
	ColDiscountPercentage = "discount_percentage"
	ColRating             = "rating"
	ColRatingCount        = "rating_count"
	ColAboutProduct       = "about_product"
	ColImgLink            = "img_link"
	ColProductLink        = "product_link"
)

// categorySep 是类目路径分隔符，例如 "Computers&Accessories|Cables|USBCables"
const categorySep = "|"

var mdURLPattern = regexp.MustCompile(`\((https?://[^)\s]+)\)`)

// LoadCSV 从文件加载目录。
func LoadCSV(path string) (*MemoryCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound,
			fmt.Sprintf("catalog: open %s: %v", path, err))
	}
	defer f.Close()

	c, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// ReadCSV 解析带表头的 CSV 并清洗字段：
//   - 价格去掉 ₹ 和逗号
//   - 折扣去掉 %
//   - 评分人数只保留数字
//   - Markdown 形式的图片链接 [..](url) 取出 url
//   - 类目按 | 切分为路径，首段为顶级类目，末段为叶子类目
//
// 只有 product_id 列是必须的；其余列缺失时字段为零值，并且 HasField 返回 false。
func ReadCSV(r io.Reader) (*MemoryCatalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		// 去掉 UTF-8 BOM
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	if _, ok := cols[ColProductID]; !ok {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: missing product_id column")
	}

	var fields []string
	for _, f := range []string{core.FieldRating, core.FieldRatingCount, core.FieldDiscountedPrice, core.FieldActualPrice} {
		if _, ok := cols[f]; ok {
			fields = append(fields, f)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	products := make([]*core.Product, 0)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		p := &core.Product{
			ProductID:   get(rec, ColProductID),
			Name:        get(rec, ColProductName),
			Category:    get(rec, ColCategory),
			About:       get(rec, ColAboutProduct),
			ImageLink:   NormalizeImageLink(get(rec, ColImgLink)),
			ProductLink: get(rec, ColProductLink),
		}
		if p.ProductID == "" {
			continue
		}
		p.DiscountedPrice, _ = conv.ParseFloat(get(rec, ColDiscountedPrice), "₹,")
		p.ActualPrice, _ = conv.ParseFloat(get(rec, ColActualPrice), "₹,")
		p.DiscountPercentage, _ = conv.ParseFloat(get(rec, ColDiscountPercentage), "%")
		p.Rating, _ = conv.ParseFloat(get(rec, ColRating), "")
		p.RatingCount = conv.ParseCount(get(rec, ColRatingCount))

		p.CategoryPath = conv.SplitNonEmpty(p.Category, categorySep)
		if n := len(p.CategoryPath); n > 0 {
			p.CategoryTop = p.CategoryPath[0]
			p.CategoryLeaf = p.CategoryPath[n-1]
		}
		products = append(products, p)
	}

	return New(products, fields...), nil
}

// NormalizeImageLink 把 Markdown 链接 [..](https://...) 转换为纯 URL，其他输入只去首尾空白。
func NormalizeImageLink(s string) string {
	s = strings.TrimSpace(s)
	if m := mdURLPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
