package session

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/hybridrec/store"
)

func newTestStore(t *testing.T) (*ViewedStore, *store.MemoryStore, *time.Time) {
	t.Helper()
	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	now := time.Unix(1700000000, 0)
	v := NewViewedStore(mem)
	v.now = func() time.Time { return now }
	return v, mem, &now
}

func TestViewedStoreRecord(t *testing.T) {
	ctx := context.Background()
	v, _, _ := newTestStore(t)
	v.MaxItems = 3

	for _, id := range []string{"P1", "P2", "P1", "P3", "P4"} {
		if err := v.Record(ctx, "s1", id); err != nil {
			t.Fatal(err)
		}
	}
	got, err := v.Viewed(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"P2", "P3", "P4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Viewed() = %v, want %v", got, want)
	}

	last, ok, err := v.Last(ctx, "s1")
	if err != nil || !ok || last != "P4" {
		t.Errorf("Last() = %q, %v, %v", last, ok, err)
	}

	if got, _ := v.Viewed(ctx, "other"); len(got) != 0 {
		t.Errorf("unknown session Viewed() = %v", got)
	}
	if _, ok, _ := v.Last(ctx, "other"); ok {
		t.Error("unknown session Last() ok = true")
	}

	if err := v.Clear(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if got, _ := v.Viewed(ctx, "s1"); len(got) != 0 {
		t.Errorf("Viewed after Clear = %v", got)
	}
}

func TestViewedStoreIgnoresEmptyIDs(t *testing.T) {
	ctx := context.Background()
	v, mem, _ := newTestStore(t)
	_ = v.Record(ctx, "", "P1")
	_ = v.Record(ctx, "s1", "")
	if _, err := mem.Get(ctx, "session:viewed:s1"); err == nil {
		t.Error("empty product id must not be recorded")
	}
	if got, err := v.Viewed(ctx, ""); err != nil || len(got) != 0 {
		t.Errorf("Viewed(\"\") = %v, %v", got, err)
	}
}

func TestViewedStoreTimeWindow(t *testing.T) {
	ctx := context.Background()
	v, _, now := newTestStore(t)
	v.TimeWindow = 60

	_ = v.Record(ctx, "s1", "old")
	*now = now.Add(2 * time.Minute)
	_ = v.Record(ctx, "s1", "new")

	got, err := v.Viewed(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"new"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Viewed() = %v, want %v", got, want)
	}
}

func TestViewedStorePlainIDList(t *testing.T) {
	ctx := context.Background()
	v, mem, _ := newTestStore(t)
	v.KeyPrefix = "viewed"
	v.TimeWindow = 60
	_ = mem.Set(ctx, "viewed:s1", []byte(`["P1","P2"]`))

	got, err := v.Viewed(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"P1", "P2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Viewed() = %v, want %v", got, want)
	}

	_ = mem.Set(ctx, "viewed:s2", []byte(`{"broken"`))
	if _, err := v.Viewed(ctx, "s2"); err == nil {
		t.Error("corrupt history should return an error")
	}
}
