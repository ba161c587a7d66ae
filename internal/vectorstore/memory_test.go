package vectorstore

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "scaled", a: []float32{1, 1}, b: []float32{3, 3}, want: 1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryStore_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Upsert(ctx, "ns", []Point{
		{ID: "a", Vec: []float32{1, 0}},
		{ID: "b", Vec: []float32{0, 1}},
		{ID: "c", Vec: []float32{1, 0}},
		{ID: "d", Vec: []float32{1, 1}},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	results, err := store.Search(ctx, "ns", []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := []string{"a", "c", "d"}
	if len(results) != len(want) {
		t.Fatalf("Search() returned %d results, want %d", len(results), len(want))
	}
	for i, id := range want {
		if results[i].PointID != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].PointID, id)
		}
	}
}

func TestMemoryStore_UpsertMovesToEnd(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Upsert(ctx, "ns", []Point{
		{ID: "a", Vec: []float32{1, 0}},
		{ID: "b", Vec: []float32{1, 0}},
	})
	_ = store.Upsert(ctx, "ns", []Point{{ID: "a", Vec: []float32{1, 0}}})

	if got := store.Count("ns"); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	results, _ := store.Search(ctx, "ns", []float32{1, 0}, 2)
	if results[0].PointID != "b" || results[1].PointID != "a" {
		t.Errorf("order = [%s %s], want [b a]", results[0].PointID, results[1].PointID)
	}
}

func TestMemoryStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Upsert(ctx, "one", []Point{{ID: "a", Vec: []float32{1, 0}}})
	_ = store.Upsert(ctx, "two", []Point{{ID: "b", Vec: []float32{1, 0}}})

	results, err := store.Search(ctx, "one", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].PointID != "a" {
		t.Errorf("Search(one) = %+v, want only a", results)
	}

	if err := store.DeleteNamespace(ctx, "one"); err != nil {
		t.Fatalf("DeleteNamespace() error = %v", err)
	}
	if store.Count("one") != 0 || store.Count("two") != 1 {
		t.Errorf("counts after DeleteNamespace = %d/%d, want 0/1", store.Count("one"), store.Count("two"))
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_ = store.Upsert(ctx, "ns", []Point{
		{ID: "a", Vec: []float32{1}},
		{ID: "b", Vec: []float32{1}},
	})
	if err := store.Delete(ctx, "ns", []string{"a", "missing"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := store.Count("ns"); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestMemoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Upsert(ctx, "ns", []Point{{ID: "", Vec: []float32{1}}}); err == nil {
		t.Error("Upsert() with empty ID should return error")
	}

	_ = store.Upsert(ctx, "ns", []Point{{ID: "a", Vec: []float32{1, 0}}})
	if _, err := store.Search(ctx, "ns", []float32{1, 0, 0}, 1); err == nil {
		t.Error("Search() with mismatched dimension should return error")
	}
	if _, err := store.Search(ctx, "ns", []float32{1, 0}, 0); err == nil {
		t.Error("Search() with k=0 should return error")
	}

	results, err := store.Search(ctx, "empty", []float32{1, 0}, 3)
	if err != nil || len(results) != 0 {
		t.Errorf("Search() on empty namespace = %v, %v; want no results", results, err)
	}
}
