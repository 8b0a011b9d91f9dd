package persist

import (
	"bytes"
	"github.com/freerahn/stockblog/lib/db"
	"github.com/freerahn/stockblog/lib/db/engines/maple"
	dbtesting "github.com/freerahn/stockblog/lib/db/testing"
	"os"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T, opts *maple.DBOptions) (db.KVDB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "blog.db")
	database, err := Open(path, maple.NewMapleDB(opts))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return database, path
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "PersistDB", func() db.KVDB {
		database, _ := openTemp(t, nil)
		return database
	})
}

func TestQuota(t *testing.T) {
	dbtesting.RunQuotaTests(t, "PersistDB", func(maxBytes int64) db.KVDB {
		database, _ := openTemp(t, &maple.DBOptions{MaxBytes: maxBytes})
		return database
	})
}

func TestReopen(t *testing.T) {
	database, path := openTemp(t, nil)
	if err := database.Set("stock_blog_posts", []byte("[]"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := database.Set("stock_blog_last_sync", []byte("1700000000000"), 2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_ = database.Delete("stock_blog_last_sync", 3)
	_ = database.Close()

	reopened, err := Open(path, maple.NewMapleDB(nil))
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	if v, ok := reopened.Get("stock_blog_posts"); !ok || !bytes.Equal(v, []byte("[]")) {
		t.Errorf("Expected persisted value, got %s (ok=%v)", v, ok)
	}
	if reopened.Has("stock_blog_last_sync") {
		t.Errorf("Deleted key came back after reopen")
	}
	if !reopened.SupportsFeature(db.FeatureDurable | db.FeatureSet) {
		t.Errorf("Expected durable feature")
	}
	if reopened.GetInfo().DbType != db.ImplPersist {
		t.Errorf("Expected db type %s, got %s", db.ImplPersist, reopened.GetInfo().DbType)
	}
}

func TestFailedFlushRollsBack(t *testing.T) {
	database, path := openTemp(t, nil)
	defer database.Close()

	if err := database.Set("key", []byte("old"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// the snapshot can no longer be written once its directory is gone
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	if err := database.Set("key", []byte("new"), 2); err == nil {
		t.Fatalf("Expected error when the snapshot cannot be written")
	}
	if v, _ := database.Get("key"); !bytes.Equal(v, []byte("old")) {
		t.Errorf("Failed write must be rolled back, got %s", v)
	}

	if err := database.Set("fresh", []byte("value"), 3); err == nil {
		t.Fatalf("Expected error when the snapshot cannot be written")
	}
	if database.Has("fresh") {
		t.Errorf("Failed write of a new key must be rolled back")
	}

	if err := database.Delete("key", 4); err == nil {
		t.Fatalf("Expected error when the snapshot cannot be written")
	}
	if !database.Has("key") {
		t.Errorf("Failed delete must be rolled back")
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog.db")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, maple.NewMapleDB(nil)); err == nil {
		t.Errorf("Expected error for corrupt snapshot")
	}
	if _, err := Open(filepath.Join(path, "nested", "x.db"), maple.NewMapleDB(nil)); err == nil {
		t.Errorf("Expected error when the parent is a file")
	}
}
