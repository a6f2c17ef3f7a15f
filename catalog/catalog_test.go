package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rushteam/hybridrec/core"
)

const sampleCSV = "\ufeffproduct_id,product_name,category,discounted_price,actual_price,discount_percentage,rating,rating_count,img_link\n" +
	`B01,Wayona USB Cable,Computers&Accessories|Accessories&Peripherals|Cables&Accessories|Cables|USBCables,₹399,"₹1,099",64%,4.2,"24,269",https://m.media-amazon.com/images/I/B01.jpg` + "\n" +
	`B02,boAt HDMI Cable,Electronics|HomeTheater|Cables|HDMICables,₹199,₹349,43%,4.0,"43,994",[img](https://m.media-amazon.com/images/I/B02.jpg)` + "\n" +
	`B01,Duplicate row,Electronics|Other,₹1,₹2,50%,1.0,1,` + "\n" +
	`,No id,Electronics,₹1,₹2,50%,1.0,1,` + "\n" +
	`B03,Budget Charger,Electronics|Mobiles|Chargers,"₹1,299",₹1999,35%,|,,` + "\n"

func loadSample(t *testing.T) *MemoryCatalog {
	t.Helper()
	c, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV() error = %v", err)
	}
	return c
}

func TestReadCSVCleaning(t *testing.T) {
	c := loadSample(t)
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}

	p, ok := c.Lookup("B01")
	if !ok {
		t.Fatal("B01 missing")
	}
	if p.Name != "Wayona USB Cable" {
		t.Errorf("duplicate row must not overwrite first record, got %q", p.Name)
	}
	if p.DiscountedPrice != 399 || p.ActualPrice != 1099 || p.DiscountPercentage != 64 {
		t.Errorf("prices = %v / %v / %v", p.DiscountedPrice, p.ActualPrice, p.DiscountPercentage)
	}
	if p.Rating != 4.2 || p.RatingCount != 24269 {
		t.Errorf("rating = %v (%d)", p.Rating, p.RatingCount)
	}
	if p.CategoryTop != "Computers&Accessories" || p.CategoryLeaf != "USBCables" || len(p.CategoryPath) != 5 {
		t.Errorf("category = %q / %q / %v", p.CategoryTop, p.CategoryLeaf, p.CategoryPath)
	}

	p2, _ := c.Lookup("B02")
	if p2.ImageLink != "https://m.media-amazon.com/images/I/B02.jpg" {
		t.Errorf("ImageLink = %q", p2.ImageLink)
	}

	p3, _ := c.Lookup("B03")
	if p3.DiscountedPrice != 1299 || p3.Rating != 0 || p3.RatingCount != 0 {
		t.Errorf("B03 = %+v", p3)
	}

	for _, f := range []string{core.FieldRating, core.FieldRatingCount, core.FieldDiscountedPrice, core.FieldActualPrice} {
		if !c.HasField(f) {
			t.Errorf("HasField(%q) = false", f)
		}
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "missing product_id", in: "product_name,category\nA,B\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in))
			if !core.IsDomainError(err) {
				t.Errorf("ReadCSV() error = %v, want domain error", err)
			}
		})
	}
}

func TestReadCSVOptionalColumns(t *testing.T) {
	c, err := ReadCSV(strings.NewReader("product_id,product_name\nA,Alpha\nB,Beta\n"))
	if err != nil {
		t.Fatal(err)
	}
	if c.HasField(core.FieldRating) || c.HasField(core.FieldRatingCount) {
		t.Error("optional columns reported present")
	}
	st := ComputeStats(c)
	if st.TotalProducts != 2 || st.AvgRating != nil || st.AvgPrice != nil {
		t.Errorf("ComputeStats() = %+v", st)
	}
}

func TestLoadCSV(t *testing.T) {
	if _, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv")); !core.IsNotFound(err) {
		t.Errorf("LoadCSV(missing) error = %v, want not found", err)
	}

	path := filepath.Join(t.TempDir(), "amazon.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d", c.Len())
	}
}

func TestNormalizeImageLink(t *testing.T) {
	tests := map[string]string{
		"https://x/y.jpg":        "https://x/y.jpg",
		" [a](https://x/y.jpg) ": "https://x/y.jpg",
		"![img](http://x/z.png)": "http://x/z.png",
		"":                       "",
		"(not a url)":            "(not a url)",
	}
	for in, want := range tests {
		if got := NormalizeImageLink(in); got != want {
			t.Errorf("NormalizeImageLink(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearchAndFilter(t *testing.T) {
	c := loadSample(t)

	got, total := c.Search("cable", 1)
	if total != 2 || len(got) != 1 || got[0].ProductID != "B01" {
		t.Errorf("Search(cable, 1) = %d items, total %d", len(got), total)
	}
	if got, total := c.Search("chargers", 0); total != 1 || got[0].ProductID != "B03" {
		t.Errorf("Search by category segment: total %d", total)
	}
	if got, total := c.Search("  ", 0); total != 0 || len(got) != 0 {
		t.Error("blank query should match nothing")
	}

	price := func(v float64) *float64 { return &v }
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{name: "no constraint", q: Query{}, want: []string{"B01", "B02", "B03"}},
		{name: "category", q: Query{Category: "electronics"}, want: []string{"B02", "B03"}},
		{name: "price range", q: Query{MinPrice: price(200), MaxPrice: price(1000)}, want: []string{"B01"}},
		{name: "min rating", q: Query{MinRating: price(4.1)}, want: []string{"B01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Filter(tt.q)
			if len(out) != len(tt.want) {
				t.Fatalf("Filter() returned %d, want %v", len(out), tt.want)
			}
			for i, p := range out {
				if p.ProductID != tt.want[i] {
					t.Errorf("Filter()[%d] = %s, want %s", i, p.ProductID, tt.want[i])
				}
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats(loadSample(t))
	if st.TotalProducts != 3 || st.CategoriesLeaf != 3 || st.CategoriesTop != 2 {
		t.Errorf("ComputeStats() = %+v", st)
	}
	if st.AvgRating == nil || *st.AvgRating < 2.73 || *st.AvgRating > 2.74 {
		t.Errorf("AvgRating = %v", st.AvgRating)
	}
	if st.AvgPrice == nil || *st.AvgPrice != (399.0+199+1299)/3 {
		t.Errorf("AvgPrice = %v", st.AvgPrice)
	}
}
