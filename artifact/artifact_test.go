package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/store"
)

func fullDocument() *Document {
	return &Document{
		UserEncoder:    []string{"u1", "u2"},
		ProductEncoder: []string{"P1", "P2", "P3"},
		U:              [][]float64{{1, 0}, {0, 1}},
		V:              [][]float64{{0.9, 0.1}, {0.2, 0.8}, {0.5, 0.5}},
		Similarity: [][]float64{
			{1, 0.3, 0.7},
			{0.3, 1, 0.1},
			{0.7, 0.1, 1},
		},
		ContentIdx2PID: []string{"P1", "P2", "P3"},
		PopRank:        []string{"P3", "P1", "P2"},
	}
}

func TestFromDocument(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(d *Document)
		required     []Key
		wantErr      bool
		wantCollab   bool
		wantContent  bool
		wantWarnings int
	}{
		{
			name:        "complete bundle",
			mutate:      func(d *Document) {},
			wantCollab:  true,
			wantContent: true,
		},
		{
			name:        "no U disables collaborative only",
			mutate:      func(d *Document) { d.U = nil },
			wantCollab:  false,
			wantContent: true,
		},
		{
			name:         "factor width mismatch degrades",
			mutate:       func(d *Document) { d.U = [][]float64{{1, 0, 0}, {0, 1, 0}} },
			wantCollab:   false,
			wantContent:  true,
			wantWarnings: 1,
		},
		{
			name:         "V rows disagree with product encoder",
			mutate:       func(d *Document) { d.V = d.V[:2] },
			wantCollab:   false,
			wantContent:  true,
			wantWarnings: 1,
		},
		{
			name:         "duplicate product ids disable collaborative",
			mutate:       func(d *Document) { d.ProductEncoder = []string{"P1", "P1", "P3"} },
			wantCollab:   false,
			wantContent:  true,
			wantWarnings: 1,
		},
		{
			name:         "non square similarity disables content",
			mutate:       func(d *Document) { d.Similarity = [][]float64{{1, 0.3, 0.7}, {0.3, 1, 0.1}} },
			wantCollab:   true,
			wantContent:  false,
			wantWarnings: 1,
		},
		{
			name: "pid2idx only is accepted when contiguous",
			mutate: func(d *Document) {
				d.ContentIdx2PID = nil
				d.ContentPID2Idx = map[string]int{"P1": 0, "P2": 1, "P3": 2}
			},
			wantCollab:  true,
			wantContent: true,
		},
		{
			name: "pid2idx with a gap disables content",
			mutate: func(d *Document) {
				d.ContentIdx2PID = nil
				d.ContentPID2Idx = map[string]int{"P1": 0, "P2": 1, "P3": 5}
			},
			wantCollab:   true,
			wantContent:  false,
			wantWarnings: 1,
		},
		{
			name:     "missing required key",
			mutate:   func(d *Document) { d.PopRank = nil },
			required: []Key{KeyPopRank},
			wantErr:  true,
		},
		{
			name:    "no known keys",
			mutate:  func(d *Document) { *d = Document{} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := fullDocument()
			tt.mutate(doc)
			b, err := FromDocument("test", doc, tt.required...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !core.IsArtifactUnavailable(err) {
					t.Errorf("error %v should be ArtifactUnavailable", err)
				}
				var le *LoadError
				if !errors.As(err, &le) {
					t.Errorf("error %T should be *LoadError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := b.HasCollaborative(); got != tt.wantCollab {
				t.Errorf("HasCollaborative() = %v, want %v", got, tt.wantCollab)
			}
			if got := b.HasContent(); got != tt.wantContent {
				t.Errorf("HasContent() = %v, want %v", got, tt.wantContent)
			}
			if got := len(b.Warnings()); got != tt.wantWarnings {
				t.Errorf("len(Warnings()) = %d, want %d (%v)", got, tt.wantWarnings, b.Warnings())
			}
		})
	}
}

func TestBundleMissing(t *testing.T) {
	doc := &Document{PopRank: []string{"P1"}}
	b, err := FromDocument("test", doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(b.Missing()); got != len(AllKeys)-1 {
		t.Errorf("len(Missing()) = %d, want %d", got, len(AllKeys)-1)
	}
	if b.HasCollaborative() || b.HasContent() {
		t.Error("pop_rank only bundle should have no personalized signal")
	}

	var nilBundle *Bundle
	if nilBundle.HasCollaborative() || nilBundle.HasContent() {
		t.Error("nil bundle should have no signal")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		if !core.IsArtifactUnavailable(err) {
			t.Fatalf("Load() error = %v, want ArtifactUnavailable", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Load() error should wrap os.ErrNotExist, got %v", err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !core.IsArtifactUnavailable(err) {
			t.Fatalf("Load() error = %v, want ArtifactUnavailable", err)
		}
	})

	t.Run("valid file", func(t *testing.T) {
		data, err := Encode(fullDocument())
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, "bundle.json")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatal(err)
		}
		b, err := Load(path, KeyU, KeyV)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !b.HasCollaborative() || !b.HasContent() {
			t.Error("expected complete bundle")
		}
		if b.Source != path {
			t.Errorf("Source = %q, want %q", b.Source, path)
		}
	})
}

func TestLoadFromStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	if _, err := LoadFromStore(ctx, s, "model:bundle"); !core.IsArtifactUnavailable(err) {
		t.Fatalf("missing key error = %v, want ArtifactUnavailable", err)
	}

	data, err := Encode(fullDocument())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "model:bundle", data); err != nil {
		t.Fatal(err)
	}
	b, err := LoadFromStore(ctx, s, "model:bundle")
	if err != nil {
		t.Fatalf("LoadFromStore() error = %v", err)
	}
	if len(b.PopRank) != 3 {
		t.Errorf("len(PopRank) = %d, want 3", len(b.PopRank))
	}
}

func TestParseKeys(t *testing.T) {
	keys, err := ParseKeys([]string{"U", "pop_rank"})
	if err != nil {
		t.Fatalf("ParseKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != KeyU || keys[1] != KeyPopRank {
		t.Errorf("ParseKeys() = %v", keys)
	}
	if _, err := ParseKeys([]string{"W"}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestHolderSwap(t *testing.T) {
	oldDoc := fullDocument()
	newDoc := fullDocument()
	newDoc.PopRank = []string{"P2"}
	oldB, _ := FromDocument("old", oldDoc)
	newB, _ := FromDocument("new", newDoc)

	h := NewHolder(nil)
	if h.Loaded() {
		t.Fatal("empty holder should not be loaded")
	}
	h.Swap(oldB)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				b := h.Current()
				// 同一份引用内字段必须一致
				switch b.Source {
				case "old":
					if len(b.PopRank) != 3 {
						t.Errorf("old bundle has %d pop_rank entries", len(b.PopRank))
						return
					}
				case "new":
					if len(b.PopRank) != 1 {
						t.Errorf("new bundle has %d pop_rank entries", len(b.PopRank))
						return
					}
				}
			}
		}()
	}
	if prev := h.Swap(newB); prev != oldB {
		t.Error("Swap should return the previous bundle")
	}
	wg.Wait()
	if h.Current() != newB {
		t.Error("Current() should return the new bundle")
	}
}
