package testing

import (
	"bytes"
	"github.com/freerahn/stockblog/lib/db"
	"testing"
)

// RunKVDBBenchmarks benchmarks the access pattern of the post store: a few keys
// holding large blobs that are rewritten as a whole
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	for _, size := range []int{4 << 10, 64 << 10, 1 << 20} {
		blob := bytes.Repeat([]byte("x"), size)

		b.Run(name+"/SetBlob/"+sizeName(size), func(b *testing.B) {
			benchmarkSetBlob(b, factory(), blob)
		})
		b.Run(name+"/GetBlob/"+sizeName(size), func(b *testing.B) {
			benchmarkGetBlob(b, factory(), blob)
		})
	}

	b.Run(name+"/SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})
}

func sizeName(size int) string {
	if size >= 1<<20 {
		return "1MB"
	}
	if size >= 64<<10 {
		return "64KB"
	}
	return "4KB"
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSetBlob(b *testing.B, database db.KVDB, blob []byte) {
	b.Cleanup(func() { _ = database.Close() })
	requireFeature(b, database, db.FeatureSet)

	b.SetBytes(int64(len(blob)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = database.Set(postsKey, blob, uint64(i))
	}
}

func benchmarkGetBlob(b *testing.B, database db.KVDB, blob []byte) {
	b.Cleanup(func() { _ = database.Close() })
	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	mustSet(b, database, postsKey, blob, 1)

	b.SetBytes(int64(len(blob)))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			database.Get(postsKey)
		}
	})
}

func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory()
	b.Cleanup(func() { _ = database.Close() })
	requireFeature(b, database, db.FeatureSave|db.FeatureLoad)

	mustSet(b, database, postsKey, bytes.Repeat([]byte("p"), 256<<10), 1)
	mustSet(b, database, lastSyncKey, []byte("1714564800000"), 2)
	mustSet(b, database, statsKey, bytes.Repeat([]byte("s"), 4<<10), 3)

	var snapshot bytes.Buffer
	if err := database.Save(&snapshot); err != nil {
		b.Fatalf("Save failed: %v", err)
	}

	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var buf bytes.Buffer
			_ = database.Save(&buf)
		}
	})

	b.Run("Load", func(b *testing.B) {
		target := factory()
		defer target.Close()
		for i := 0; i < b.N; i++ {
			_ = target.Load(bytes.NewReader(snapshot.Bytes()))
		}
	})
}
