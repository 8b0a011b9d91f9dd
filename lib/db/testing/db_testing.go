package testing

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/freerahn/stockblog/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// QuotaDBFactory creates a new KVDB limited to maxBytes
type QuotaDBFactory func(maxBytes int64) db.KVDB

// the keys the blog keeps in its local storage
const (
	postsKey    = "stock_blog_posts"
	lastSyncKey = "stock_blog_last_sync"
	statsKey    = "stock_blog_stats"
)

// a single case of the suite, needs lists the features it exercises
type dbCase struct {
	name  string
	needs db.Feature
	run   func(t *testing.T, factory DBFactory)
}

var dbCases = []dbCase{
	{"Set&Get", db.FeatureSet | db.FeatureGet, testSetGet},
	{"Copies", db.FeatureSet | db.FeatureGet, testCopies},
	{"Delete", db.FeatureSet | db.FeatureGet | db.FeatureDelete, testDelete},
	{"Has", db.FeatureSet | db.FeatureHas | db.FeatureDelete, testHas},
	{"StaleWrite", db.FeatureSet | db.FeatureGet, testStaleWrite},
	{"SaveLoad", db.FeatureSave | db.FeatureLoad, testSaveLoad},
	{"LoadGarbage", db.FeatureSet | db.FeatureLoad, testLoadGarbage},
	{"EdgeCases", db.FeatureSet | db.FeatureGet, testEdgeCases},
	{"ManyKeys", db.FeatureSet | db.FeatureGet | db.FeatureDelete, testManyKeys},
	{"Closed", db.FeatureSet, testClosed},
	{"Concurrent", db.FeatureSet | db.FeatureGet, testConcurrent},
}

// RunKVDBTests runs the test suite every KVDB implementation has to pass.
// Cases needing a feature the implementation does not support are skipped.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		for _, c := range dbCases {
			t.Run(c.name, func(t *testing.T) {
				probe := factory()
				ok := probe.SupportsFeature(c.needs)
				_ = probe.Close()
				if !ok {
					t.Skipf("%s does not support the required features", name)
				}
				c.run(t, factory)
			})
		}
	})
}

// RunQuotaTests checks that a quota-limited KVDB rejects oversized writes and keeps the old value.
func RunQuotaTests(t *testing.T, name string, factory QuotaDBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Quota", func(t *testing.T) {
			testQuota(t, factory(64))
		})
		t.Run("QuotaFreedByDelete", func(t *testing.T) {
			testQuotaFreedByDelete(t, factory(64))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func open(t *testing.T, factory DBFactory) db.KVDB {
	t.Helper()
	database := factory()
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func mustSet(t testing.TB, database db.KVDB, key string, value []byte, idx uint64) {
	t.Helper()
	if err := database.Set(key, value, idx); err != nil {
		t.Fatalf("Unexpected error during Set(%q): %v", key, err)
	}
}

// expectValue fails unless key holds want
func expectValue(t testing.TB, database db.KVDB, key string, want []byte) {
	t.Helper()
	got, ok := database.Get(key)
	if !ok {
		t.Errorf("Expected key %q to exist", key)
		return
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Value of %q: expected %q, got %q", key, want, got)
	}
}

func expectMissing(t testing.TB, database db.KVDB, key string) {
	t.Helper()
	if _, ok := database.Get(key); ok {
		t.Errorf("Expected key %q to be missing", key)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	mustSet(t, database, postsKey, []byte(`[{"id":"1"}]`), 1)
	expectValue(t, database, postsKey, []byte(`[{"id":"1"}]`))

	// overwriting replaces the whole value
	mustSet(t, database, postsKey, []byte(`[]`), 2)
	expectValue(t, database, postsKey, []byte(`[]`))

	expectMissing(t, database, statsKey)
}

func testCopies(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	input := []byte("1714564800000")
	mustSet(t, database, lastSyncKey, input, 1)
	input[0] = 'X'
	expectValue(t, database, lastSyncKey, []byte("1714564800000"))

	got, _ := database.Get(lastSyncKey)
	got[0] = 'X'
	expectValue(t, database, lastSyncKey, []byte("1714564800000"))
}

func testDelete(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	mustSet(t, database, statsKey, []byte("{}"), 1)
	if err := database.Delete(statsKey, 2); err != nil {
		t.Errorf("Unexpected error during Delete: %v", err)
	}
	expectMissing(t, database, statsKey)

	if err := database.Delete("nonexistent-key", 3); err != nil {
		t.Errorf("Deleting a missing key should not fail: %v", err)
	}

	mustSet(t, database, statsKey, []byte("again"), 4)
	expectValue(t, database, statsKey, []byte("again"))
}

func testHas(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	if database.Has(postsKey) {
		t.Errorf("Expected Has to return false for missing key")
	}
	mustSet(t, database, postsKey, []byte("[]"), 0)
	if !database.Has(postsKey) {
		t.Errorf("Expected Has to return true after Set")
	}
	_ = database.Delete(postsKey, 0)
	if database.Has(postsKey) {
		t.Errorf("Expected Has to return false after Delete")
	}
}

func testStaleWrite(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	mustSet(t, database, postsKey, []byte("new"), 10)
	mustSet(t, database, postsKey, []byte("old"), 5)
	expectValue(t, database, postsKey, []byte("new"))

	if database.WriteIdx() != 10 {
		t.Errorf("Expected write index 10, got %d", database.WriteIdx())
	}
	database.SetWriteIdx(3)
	if database.WriteIdx() != 10 {
		t.Errorf("Write index must never decrease, got %d", database.WriteIdx())
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	src, dst := open(t, factory), open(t, factory)

	want := map[string][]byte{
		postsKey:    []byte(`[{"id":"1","title":"t"}]`),
		lastSyncKey: []byte("1714564800000"),
		statsKey:    []byte(`{"visitors":{},"views":{}}`),
	}
	idx := uint64(1)
	for k, v := range want {
		mustSet(t, src, k, v, idx)
		idx++
	}
	mustSet(t, dst, "will-be-replaced", []byte("x"), 0)

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}
	if err := dst.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	for k, v := range want {
		expectValue(t, dst, k, v)
	}
	expectMissing(t, dst, "will-be-replaced")
	if dst.WriteIdx() != src.WriteIdx() {
		t.Errorf("Expected write index %d after Load, got %d", src.WriteIdx(), dst.WriteIdx())
	}
}

func testLoadGarbage(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	mustSet(t, database, postsKey, []byte("[]"), 0)
	for _, garbage := range [][]byte{nil, []byte("definitely not a snapshot"), []byte("MAPLEDB\x00\x04")} {
		if err := database.Load(bytes.NewReader(garbage)); err == nil {
			t.Errorf("Expected error when loading %q", garbage)
		}
	}
	expectValue(t, database, postsKey, []byte("[]"))
}

func testEdgeCases(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	mustSet(t, database, "", []byte("value for empty key"), 0)
	expectValue(t, database, "", []byte("value for empty key"))

	mustSet(t, database, "nil-value", nil, 0)
	if v, ok := database.Get("nil-value"); !ok || len(v) != 0 {
		t.Errorf("Nil value should read back empty, got %v (exists=%v)", v, ok)
	}

	// a large collection blob
	large := bytes.Repeat([]byte(`{"id":"x"},`), 100_000)
	mustSet(t, database, postsKey, large, 0)
	expectValue(t, database, postsKey, large)
}

func testManyKeys(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	const n = 200
	key := func(i int) string { return fmt.Sprintf("%s-%d", postsKey, i) }

	for i := 0; i < n; i++ {
		mustSet(t, database, key(i), []byte(fmt.Sprintf("value-%d", i)), 0)
	}
	for i := 0; i < n; i += 2 {
		_ = database.Delete(key(i), 10)
	}
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			expectMissing(t, database, key(i))
		} else {
			expectValue(t, database, key(i), []byte(fmt.Sprintf("value-%d", i)))
		}
	}

	if info := database.GetInfo(); info.Keys != n/2 {
		t.Errorf("Expected %d keys in GetInfo, got %d", n/2, info.Keys)
	}
}

func testClosed(t *testing.T, factory DBFactory) {
	database := factory()
	if err := database.Close(); err != nil {
		t.Fatalf("Unexpected error during Close: %v", err)
	}
	if err := database.Set(postsKey, []byte("[]"), 0); !errors.Is(err, db.ErrClosed) {
		t.Errorf("Expected ErrClosed after Close, got %v", err)
	}
}

// testConcurrent hammers the three blog keys from several goroutines, the
// way a save, a sync and the view tracker write at the same time
func testConcurrent(t *testing.T, factory DBFactory) {
	database := open(t, factory)

	keys := []string{postsKey, lastSyncKey, statsKey}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				k := keys[(w+i)%len(keys)]
				if i%4 == 3 {
					database.Get(k)
					continue
				}
				if err := database.Set(k, []byte(fmt.Sprintf("%d-%d", w, i)), 0); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}(w)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("Test had %d errors during parallel operations, first: %v", len(errs), errs[0])
	}
	for _, k := range keys {
		if !database.Has(k) && database.SupportsFeature(db.FeatureHas) {
			t.Errorf("Key %s missing after parallel run", k)
		}
	}
}

func testQuota(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureQuota)

	mustSet(t, database, postsKey, []byte("small"), 0)

	err := database.Set(postsKey, make([]byte, 128), 1)
	if !errors.Is(err, db.ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got %v", err)
	}
	expectValue(t, database, postsKey, []byte("small"))

	if err := database.Set(statsKey, make([]byte, 128), 2); !errors.Is(err, db.ErrQuotaExceeded) {
		t.Errorf("Expected ErrQuotaExceeded for new key, got %v", err)
	}
	if database.Has(statsKey) {
		t.Errorf("Rejected write must not create the key")
	}
}

func testQuotaFreedByDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureQuota)

	mustSet(t, database, "a", make([]byte, 40), 0)
	if err := database.Set("b", make([]byte, 40), 0); !errors.Is(err, db.ErrQuotaExceeded) {
		t.Fatalf("Expected ErrQuotaExceeded, got %v", err)
	}

	_ = database.Delete("a", 0)
	if err := database.Set("b", make([]byte, 40), 0); err != nil {
		t.Errorf("Delete should free quota, got %v", err)
	}
}
