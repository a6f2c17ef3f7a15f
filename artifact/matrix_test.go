package artifact

import (
	"testing"
)

func TestEncoder(t *testing.T) {
	enc, err := NewEncoder([]string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if i, ok := enc.Index("b"); !ok || i != 1 {
		t.Errorf("Index(b) = %d, %v", i, ok)
	}
	if _, ok := enc.Index("z"); ok {
		t.Error("unknown id should have no index")
	}
	if id, ok := enc.ID(2); !ok || id != "c" {
		t.Errorf("ID(2) = %q, %v", id, ok)
	}
	if _, ok := enc.ID(3); ok {
		t.Error("out of range index should fail")
	}
	if _, err := NewEncoder([]string{"a", "a"}); err == nil {
		t.Error("duplicate ids should fail")
	}

	var nilEnc *Encoder
	if nilEnc.Len() != 0 || nilEnc.Contains("a") {
		t.Error("nil encoder should be empty")
	}
}

func TestMatrixMulVecT(t *testing.T) {
	m, err := NewMatrix([][]float64{{1, 2}, {3, 4}, {0, -1}})
	if err != nil {
		t.Fatal(err)
	}
	got := m.MulVecT([]float64{1, 1})
	want := []float64{3, 7, -1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MulVecT()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if m.MulVecT([]float64{1}) != nil {
		t.Error("width mismatch should return nil")
	}
	if _, err := NewMatrix([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("ragged rows should fail")
	}
}

func TestSparseSimilarity(t *testing.T) {
	s, err := NewSparseSimilarity([]map[string]float64{
		{"1": 0.5},
		{"0": 0.5, "2": 0.2},
		{},
	})
	if err != nil {
		t.Fatal(err)
	}
	row := s.Row(1)
	if len(row) != 3 || row[0] != 0.5 || row[1] != 0 || row[2] != 0.2 {
		t.Errorf("Row(1) = %v", row)
	}
	if _, err := NewSparseSimilarity([]map[string]float64{{"7": 1}}); err == nil {
		t.Error("out of range column should fail")
	}
	if _, err := NewSparseSimilarity([]map[string]float64{{"x": 1}}); err == nil {
		t.Error("non numeric column should fail")
	}
}
