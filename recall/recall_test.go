package recall

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rushteam/hybridrec/artifact"
	"github.com/rushteam/hybridrec/catalog"
	"github.com/rushteam/hybridrec/core"
	"github.com/rushteam/hybridrec/store"
)

func mustBundle(t *testing.T, doc *artifact.Document) *artifact.Bundle {
	t.Helper()
	b, err := artifact.FromDocument("test", doc)
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}
	return b
}

func productsOf(ids ...string) []*core.Product {
	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, &core.Product{ProductID: id})
	}
	return out
}

func scoredIDs(s []Scored) []string {
	out := make([]string, 0, len(s))
	for _, x := range s {
		out = append(out, x.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// contentBundle: A B X Y Z，A→{X:0.9, Y:0.4}，B→{X:0.5, Z:0.3}
func contentBundle(t *testing.T) *artifact.Bundle {
	return mustBundle(t, &artifact.Document{
		ContentIdx2PID: []string{"A", "B", "X", "Y", "Z"},
		Similarity: [][]float64{
			{1, 0, 0.9, 0.4, 0},
			{0, 1, 0.5, 0, 0.3},
			{0.9, 0.5, 1, 0, 0},
			{0.4, 0, 0, 1, 0},
			{0, 0.3, 0, 0, 1},
		},
	})
}

func TestContentSimilarTo(t *testing.T) {
	r := &Content{Bundle: contentBundle(t)}
	tests := []struct {
		name string
		seed string
		k    int
		want []string
	}{
		{name: "top 2 for A", seed: "A", k: 2, want: []string{"X", "Y"}},
		// B、Y 对 A 都是 0，同分按下标升序
		{name: "ties break by index", seed: "A", k: 4, want: []string{"X", "Y", "B", "Z"}},
		{name: "unknown seed", seed: "Q", k: 3, want: []string{}},
		{name: "k zero", seed: "A", k: 0, want: []string{}},
		{name: "k larger than catalog", seed: "Z", k: 10, want: []string{"B", "A", "X", "Y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.SimilarTo(tt.seed, tt.k)
			if ids := scoredIDs(got); !equalIDs(ids, tt.want) {
				t.Errorf("SimilarTo(%q, %d) = %v, want %v", tt.seed, tt.k, ids, tt.want)
			}
			for i, s := range got {
				if s.ID == tt.seed {
					t.Errorf("seed %q returned", tt.seed)
				}
				if i > 0 && s.Score > got[i-1].Score {
					t.Errorf("scores not non-increasing at %d: %v", i, got)
				}
			}
		})
	}
}

func TestContentNaNDropped(t *testing.T) {
	b := mustBundle(t, &artifact.Document{
		ContentIdx2PID: []string{"A", "B", "C"},
		Similarity: [][]float64{
			{1, math.NaN(), 0.2},
			{0, 1, 0},
			{0.2, 0, 1},
		},
	})
	got := scoredIDs((&Content{Bundle: b}).SimilarTo("A", 5))
	if !equalIDs(got, []string{"C"}) {
		t.Errorf("SimilarTo() = %v, want [C]", got)
	}
}

func TestContentSimilarToMany(t *testing.T) {
	r := &Content{Bundle: contentBundle(t)}

	got := r.SimilarToMany([]string{"A", "B"}, 2)
	if len(got) != 2 {
		t.Fatalf("SimilarToMany() returned %d items, want 2", len(got))
	}
	if got[0].ID != "X" || math.Abs(got[0].Score-1.4) > 1e-9 {
		t.Errorf("first = %+v, want X with 1.4", got[0])
	}
	if got[1].ID != "Y" {
		t.Errorf("second = %q, want Y (0.4 > Z's 0.3)", got[1].ID)
	}
	for _, s := range got {
		if s.ID == "A" || s.ID == "B" {
			t.Errorf("seed %q returned", s.ID)
		}
	}

	// 重复种子只计一次，未知种子跳过
	dup := r.SimilarToMany([]string{"A", "A", "unknown"}, 1)
	if len(dup) != 1 || dup[0].ID != "X" || dup[0].Score != 0.9 {
		t.Errorf("SimilarToMany(dup) = %+v", dup)
	}
	if got := r.SimilarToMany([]string{"unknown"}, 3); len(got) != 0 {
		t.Errorf("unknown seeds should return empty, got %v", got)
	}

	// k 远大于商品数时返回全部非种子商品
	all := scoredIDs(r.SimilarToMany([]string{"A"}, math.MaxInt))
	if !equalIDs(all, []string{"X", "Y", "B", "Z"}) {
		t.Errorf("SimilarToMany(MaxInt) = %v", all)
	}
}

func TestContentUnavailable(t *testing.T) {
	r := &Content{Bundle: nil}
	if r.Available() {
		t.Error("nil bundle should not be available")
	}
	if got := r.SimilarTo("A", 3); len(got) != 0 {
		t.Errorf("SimilarTo() = %v, want empty", got)
	}
	items, err := r.Recall(context.Background(), &core.RecommendContext{SeedItemIDs: []string{"A"}})
	if err != nil || len(items) != 0 {
		t.Errorf("Recall() = %v, %v", items, err)
	}
}

func collabBundle(t *testing.T) *artifact.Bundle {
	return mustBundle(t, &artifact.Document{
		UserEncoder:    []string{"u1", "u2"},
		ProductEncoder: []string{"P1", "P2", "P3", "P4"},
		U:              [][]float64{{1, 0}, {0, 1}},
		V:              [][]float64{{0.9, 0.1}, {0.2, 0.8}, {0.9, 0.3}, {0.1, 0.1}},
	})
}

func TestCollaborativeScoreForUser(t *testing.T) {
	r := &Collaborative{Bundle: collabBundle(t)}

	scores, st := r.ScoreForUser("u1")
	if st != StatusFound {
		t.Fatalf("status = %v, want found", st)
	}
	want := []float64{0.9, 0.2, 0.9, 0.1}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}

	if _, st := r.ScoreForUser("ghost"); st != StatusColdStart {
		t.Errorf("unknown user status = %v, want cold_start", st)
	}
	if _, st := r.ScoreForUser(""); st != StatusColdStart {
		t.Errorf("empty user status = %v, want cold_start", st)
	}
	if _, st := (&Collaborative{}).ScoreForUser("u1"); st != StatusUnavailable {
		t.Errorf("no bundle status = %v, want unavailable", st)
	}
}

func TestCollaborativeRank(t *testing.T) {
	r := &Collaborative{Bundle: collabBundle(t)}
	tests := []struct {
		name     string
		n        int
		excluded map[string]struct{}
		keep     func(string) bool
		want     []string
	}{
		// P1 与 P3 同为 0.9，下标小的在前
		{name: "ties by index", n: 4, want: []string{"P1", "P3", "P2", "P4"}},
		{name: "truncate", n: 2, want: []string{"P1", "P3"}},
		{name: "masked items never surface", n: 4, excluded: core.NewExcludedSet("P1", "P2"), want: []string{"P3", "P4"}},
		{name: "keep filter", n: 2, keep: func(id string) bool { return id != "P3" }, want: []string{"P1", "P2"}},
		{name: "n beyond item count", n: math.MaxInt, want: []string{"P1", "P3", "P2", "P4"}},
		{name: "huge n with keep filter", n: math.MaxInt / 2, keep: func(id string) bool { return id != "P1" }, want: []string{"P3", "P2", "P4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, st := r.Rank("u1", tt.n, tt.excluded, tt.keep)
			if st != StatusFound {
				t.Fatalf("status = %v", st)
			}
			if ids := scoredIDs(got); !equalIDs(ids, tt.want) {
				t.Errorf("Rank() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestCollaborativeMask(t *testing.T) {
	r := &Collaborative{Bundle: collabBundle(t)}
	scores := []float64{1, math.NaN(), 3, 4}
	r.Mask(scores, core.NewExcludedSet("P4", "unknown"))
	if !math.IsInf(scores[1], -1) || !math.IsInf(scores[3], -1) {
		t.Errorf("Mask() = %v", scores)
	}
	if scores[0] != 1 || scores[2] != 3 {
		t.Errorf("Mask() changed unmasked scores: %v", scores)
	}
}

func TestPopularityTopN(t *testing.T) {
	withFields := catalog.New([]*core.Product{
		{ProductID: "P1", RatingCount: 10, Rating: 4.0},
		{ProductID: "P2", RatingCount: 50, Rating: 3.5},
		{ProductID: "P3", RatingCount: 50, Rating: 4.5},
	}, core.FieldRating, core.FieldRatingCount)
	noFields := catalog.New(productsOf("P1", "P2", "P3"))

	tests := []struct {
		name     string
		pop      *Popularity
		n        int
		excluded map[string]struct{}
		want     []string
	}{
		{
			name: "ranking intersected with catalog",
			pop:  &Popularity{Ranking: []string{"P9", "P1", "P2"}, Catalog: catalog.New(productsOf("P1", "P2"))},
			n:    3,
			want: []string{"P1", "P2"},
		},
		{
			name:     "excluded skipped",
			pop:      &Popularity{Ranking: []string{"P3", "P1", "P2"}, Catalog: noFields},
			n:        2,
			excluded: core.NewExcludedSet("P3"),
			want:     []string{"P1", "P2"},
		},
		{
			name: "empty ranking falls back to rating_count then rating",
			pop:  &Popularity{Catalog: withFields},
			n:    3,
			want: []string{"P3", "P2", "P1"},
		},
		{
			name: "ranking entirely outside catalog falls back",
			pop:  &Popularity{Ranking: []string{"P9"}, Catalog: withFields},
			n:    1,
			want: []string{"P3"},
		},
		{
			name: "no engagement columns takes catalog order",
			pop:  &Popularity{Catalog: noFields},
			n:    2,
			want: []string{"P1", "P2"},
		},
		{
			name: "n beyond ranking size",
			pop:  &Popularity{Ranking: []string{"P2", "P1"}, Catalog: noFields},
			n:    math.MaxInt,
			want: []string{"P2", "P1"},
		},
		{
			name: "n beyond catalog size on fallback",
			pop:  &Popularity{Catalog: withFields},
			n:    math.MaxInt,
			want: []string{"P3", "P2", "P1"},
		},
		{
			name: "n zero",
			pop:  &Popularity{Ranking: []string{"P1"}, Catalog: noFields},
			n:    0,
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.pop.TopN(tt.n, tt.excluded)
			if !equalIDs(got, tt.want) {
				t.Errorf("TopN(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestLoadRanking(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	got, err := LoadRanking(ctx, s, "pop", 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("missing key: %v, %v", got, err)
	}
	_ = s.ZAdd(ctx, "pop", 10, "P1")
	_ = s.ZAdd(ctx, "pop", 30, "P2")
	_ = s.ZAdd(ctx, "pop", 20, "P3")

	got, err = LoadRanking(ctx, s, "pop", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(got, []string{"P2", "P3"}) {
		t.Errorf("LoadRanking() = %v, want [P2 P3]", got)
	}
}

func TestCategoryRecall(t *testing.T) {
	cat := catalog.New([]*core.Product{
		{ProductID: "S", CategoryLeaf: "USBCables", RatingCount: 1},
		{ProductID: "A", CategoryLeaf: "usbcables", RatingCount: 5},
		{ProductID: "B", CategoryLeaf: "USBCables", RatingCount: 9},
		{ProductID: "C", CategoryLeaf: "Mice", RatingCount: 100},
		{ProductID: "D", CategoryLeaf: "USBCables", RatingCount: 7},
	}, core.FieldRatingCount)
	r := &CategoryRecall{Catalog: cat}

	got := r.SimilarByCategory("S", 2, nil)
	if !equalIDs(got, []string{"B", "D"}) {
		t.Errorf("SimilarByCategory() = %v, want [B D]", got)
	}
	got = r.SimilarByCategory("S", 5, core.NewExcludedSet("B"))
	if !equalIDs(got, []string{"D", "A"}) {
		t.Errorf("SimilarByCategory(excluded) = %v, want [D A]", got)
	}
	if got := r.SimilarByCategory("missing", 5, nil); len(got) != 0 {
		t.Errorf("unknown seed = %v, want empty", got)
	}
}

type stubSource struct {
	name  string
	ids   []string
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, core.NewItem(id))
	}
	return out, nil
}

func TestFanout(t *testing.T) {
	f := &Fanout{
		Sources: []Source{
			&stubSource{name: "slow", ids: []string{"a", "b"}, delay: 20 * time.Millisecond},
			&stubSource{name: "broken", err: errors.New("boom")},
			&stubSource{name: "fast", ids: []string{"b", "c"}},
		},
	}

	results := f.Gather(context.Background(), &core.RecommendContext{})
	if len(results) != 3 {
		t.Fatalf("Gather() returned %d slots", len(results))
	}
	if !equalIDs(core.IDs(results[0]), []string{"a", "b"}) || len(results[1]) != 0 || !equalIDs(core.IDs(results[2]), []string{"b", "c"}) {
		t.Errorf("Gather() = %v %v %v", core.IDs(results[0]), core.IDs(results[1]), core.IDs(results[2]))
	}

	f.Timeout = time.Millisecond
	results = f.Gather(context.Background(), &core.RecommendContext{})
	if len(results[0]) != 0 {
		t.Errorf("timed out source should be empty, got %v", core.IDs(results[0]))
	}
	if !equalIDs(core.IDs(results[2]), []string{"b", "c"}) {
		t.Errorf("fast source should survive the timeout, got %v", core.IDs(results[2]))
	}
}

func TestRecallHonorsContext(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()

	collab := &Collaborative{Bundle: collabBundle(t)}
	content := &Content{Bundle: contentBundle(t)}
	rctx := &core.RecommendContext{UserID: "u1", SeedItemIDs: []string{"A"}}

	tests := []struct {
		name string
		src  Source
		ctx  context.Context
		want error
	}{
		{name: "collaborative cancelled", src: collab, ctx: cancelled, want: context.Canceled},
		{name: "collaborative deadline passed", src: collab, ctx: expired, want: context.DeadlineExceeded},
		{name: "content cancelled", src: content, ctx: cancelled, want: context.Canceled},
		{name: "content deadline passed", src: content, ctx: expired, want: context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := tt.src.Recall(tt.ctx, rctx)
			if !errors.Is(err, tt.want) {
				t.Errorf("Recall() error = %v, want %v", err, tt.want)
			}
			if len(items) != 0 {
				t.Errorf("Recall() = %v, want empty", core.IDs(items))
			}
		})
	}

	if items, err := collab.Recall(context.Background(), rctx); err != nil || len(items) == 0 {
		t.Errorf("live context Recall() = %v, %v", core.IDs(items), err)
	}
}
