package tabletesting

import (
	"context"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/table"
	"github.com/google/go-cmp/cmp"
	"testing"
)

// Factory opens an empty table
type Factory func(t *testing.T) table.ITable

// RunTableTests runs the conformance suite for a table.ITable implementation.
func RunTableTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("UpsertGet", func(t *testing.T) {
			testUpsertGet(t, factory(t))
		})
		t.Run("ListOrder", func(t *testing.T) {
			testListOrder(t, factory(t))
		})
		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})
	})
}

func testUpsertGet(t *testing.T, tbl table.ITable) {
	defer tbl.Close()
	ctx := context.Background()

	p := post.Post{
		ID: "1", Title: "CJ CGV", Content: "<p>body</p>", Excerpt: "body",
		Tags: []string{"kospi"}, Images: []string{"a.png"},
		StockSymbol: "079160", StockName: "CJ CGV",
		CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "2024-01-01T00:00:00.000Z",
	}
	if err := tbl.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, ok, err := tbl.Get(ctx, "1")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	want := p.WithDefaults()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected post (-want +got):\n%s", diff)
	}

	p.Title = "updated"
	p.StockSymbol, p.StockName = "", ""
	p.UpdatedAt = "2024-02-01T00:00:00.000Z"
	if err := tbl.Upsert(ctx, p); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	got, _, _ = tbl.Get(ctx, "1")
	if got.Title != "updated" || got.StockSymbol != "" || got.UpdatedAt != p.UpdatedAt {
		t.Errorf("Upsert did not replace the row: %+v", got)
	}

	if _, ok, err := tbl.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Expected missing post, got ok=%v err=%v", ok, err)
	}
}

func testListOrder(t *testing.T, tbl table.ITable) {
	defer tbl.Close()
	ctx := context.Background()

	for _, p := range []post.Post{
		{ID: "old", Title: "t", Content: "c", CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "new", Title: "t", Content: "c", CreatedAt: "2024-03-01T00:00:00.000Z", UpdatedAt: "2024-03-01T00:00:00.000Z"},
		{ID: "mid", Title: "t", Content: "c", CreatedAt: "2024-02-01T00:00:00.000Z", UpdatedAt: "2024-02-01T00:00:00.000Z"},
	} {
		if err := tbl.Upsert(ctx, p); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	posts, err := tbl.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	var ids []string
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"new", "mid", "old"}, ids); diff != "" {
		t.Errorf("Unexpected order (-want +got):\n%s", diff)
	}
}

func testDelete(t *testing.T, tbl table.ITable) {
	defer tbl.Close()
	ctx := context.Background()

	if err := tbl.Upsert(ctx, post.Post{ID: "1", Title: "t", Content: "c", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if removed, err := tbl.Delete(ctx, "1"); err != nil || !removed {
		t.Errorf("Expected delete to remove the post, got %v %v", removed, err)
	}
	if removed, err := tbl.Delete(ctx, "1"); err != nil || removed {
		t.Errorf("Expected second delete to report false, got %v %v", removed, err)
	}
	posts, _ := tbl.List(ctx)
	if len(posts) != 0 {
		t.Errorf("Expected empty table, got %d posts", len(posts))
	}
}
