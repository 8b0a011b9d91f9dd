package lstore

import (
	"fmt"
	"github.com/freerahn/stockblog/lib/db"
	"github.com/freerahn/stockblog/lib/db/engines/maple"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/remote/serializer"
	"github.com/google/go-cmp/cmp"
	"strings"
	"sync"
	"testing"
)

var codecs = map[string]func() serializer.ISnapshotSerializer{
	"JSON":   serializer.NewJSONSerializer,
	"GOB":    serializer.NewGOBSerializer,
	"Binary": serializer.NewBinarySerializer,
}

func newStore(t *testing.T, opts *maple.DBOptions) (store.IPostStore, db.KVDB) {
	t.Helper()
	database := maple.NewMapleDB(opts)
	return openStore(t, database, serializer.NewJSONSerializer()), database
}

func openStore(t *testing.T, database db.KVDB, codec store.Codec) store.IPostStore {
	t.Helper()
	s, err := NewLocalStore(func() (db.KVDB, error) { return database, nil }, codec)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return s
}

func samplePost(id, created string) post.Post {
	return post.Post{ID: id, Title: "title " + id, Content: "content", Author: post.DefaultAuthor, CreatedAt: created, UpdatedAt: created}
}

func TestPutGet(t *testing.T) {
	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			s := openStore(t, maple.NewMapleDB(maple.DefaultOptions()), codec())

			if s.Len() != 0 || len(s.GetAll()) != 0 {
				t.Fatalf("Expected empty store")
			}

			// a saved post carries empty, not nil, lists
			p := samplePost("1", "2024-01-01T00:00:00.000Z").WithDefaults()
			if err := s.Put(p); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, ok := s.GetByID("1")
			if !ok {
				t.Fatalf("Expected post 1")
			}
			if diff := cmp.Diff(p, got); diff != "" {
				t.Errorf("Unexpected post (-want +got):\n%s", diff)
			}

			// replacing keeps the position
			_ = s.Put(samplePost("2", "2024-01-02T00:00:00.000Z"))
			p.Title = "changed"
			p.Tags = []string{"kospi"}
			_ = s.Put(p)
			all := s.GetAll()
			if len(all) != 2 || all[0].ID != "1" || all[0].Title != "changed" {
				t.Errorf("Expected in-place replacement, got %+v", all)
			}
			if diff := cmp.Diff(p, all[0]); diff != "" {
				t.Errorf("Unexpected replaced post (-want +got):\n%s", diff)
			}

			if _, ok := s.GetByID("missing"); ok {
				t.Errorf("Expected missing post")
			}
		})
	}
}

func TestGetLatest(t *testing.T) {
	s, _ := newStore(t, maple.DefaultOptions())
	_ = s.ReplaceAll([]post.Post{
		samplePost("a", "2024-01-01T00:00:00.000Z"),
		samplePost("b", "not a date"),
		samplePost("c", "2024-03-01T00:00:00.000Z"),
		samplePost("d", "2024-02-01T00:00:00.000Z"),
	})

	var ids []string
	for _, p := range s.GetLatest(3) {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"c", "d", "a"}, ids); diff != "" {
		t.Errorf("Unexpected order (-want +got):\n%s", diff)
	}
	if n := len(s.GetLatest(0)); n != 4 {
		t.Errorf("Expected all posts without limit, got %d", n)
	}
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t, maple.DefaultOptions())
	_ = s.Put(samplePost("1", "2024-01-01T00:00:00.000Z"))

	if removed, err := s.Delete("1"); err != nil || !removed {
		t.Errorf("Expected removal, got %v %v", removed, err)
	}
	if removed, err := s.Delete("1"); err != nil || removed {
		t.Errorf("Expected second delete to report false, got %v %v", removed, err)
	}
}

func TestCorruptBlobReadsEmpty(t *testing.T) {
	s, database := newStore(t, maple.DefaultOptions())
	if err := database.Set(PostsKey, []byte("{broken"), 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if s.Len() != 0 || len(s.GetLatest(0)) != 0 {
		t.Errorf("Corrupt blob should read as empty")
	}

	// writes refuse to replace what they could not read
	if err := s.Put(samplePost("1", "2024-01-01T00:00:00.000Z")); !store.IsCode(err, store.RetCStorageFailure) {
		t.Errorf("Expected StorageFailure from Put, got %v", err)
	}
	if _, err := s.Delete("1"); !store.IsCode(err, store.RetCStorageFailure) {
		t.Errorf("Expected StorageFailure from Delete, got %v", err)
	}
	if raw, _ := database.Get(PostsKey); string(raw) != "{broken" {
		t.Errorf("Corrupt blob was overwritten: %q", raw)
	}

	// a full replace recovers the store
	if err := s.ReplaceAll([]post.Post{samplePost("1", "2024-01-01T00:00:00.000Z")}); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Expected one post after ReplaceAll")
	}
}

func TestOtherSerializerKeepsPosts(t *testing.T) {
	database := maple.NewMapleDB(maple.DefaultOptions())
	jsonStore := openStore(t, database, serializer.NewJSONSerializer())
	_ = jsonStore.Put(samplePost("1", "2024-01-01T00:00:00.000Z"))
	_ = jsonStore.Put(samplePost("2", "2024-01-02T00:00:00.000Z"))

	gobStore := openStore(t, database, serializer.NewGOBSerializer())
	if err := gobStore.Put(samplePost("3", "2024-01-03T00:00:00.000Z")); !store.IsCode(err, store.RetCStorageFailure) {
		t.Errorf("Expected StorageFailure, got %v", err)
	}
	if removed, err := gobStore.Delete("1"); removed || !store.IsCode(err, store.RetCStorageFailure) {
		t.Errorf("Expected StorageFailure from Delete, got %v %v", removed, err)
	}

	var ids []string
	for _, p := range jsonStore.GetAll() {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"1", "2"}, ids); diff != "" {
		t.Errorf("Posts lost after a write with another serializer (-want +got):\n%s", diff)
	}
}

func TestQuotaRejectsWrite(t *testing.T) {
	s, _ := newStore(t, &maple.DBOptions{NumShards: 1, MaxBytes: 2048})
	if err := s.Put(samplePost("1", "2024-01-01T00:00:00.000Z")); err != nil {
		t.Fatalf("Small put failed: %v", err)
	}

	big := samplePost("2", "2024-01-02T00:00:00.000Z")
	big.Content = strings.Repeat("x", 4096)
	err := s.Put(big)
	if !store.IsCode(err, store.RetCStorageFailure) {
		t.Fatalf("Expected StorageFailure, got %v", err)
	}

	// the previous collection is untouched
	all := s.GetAll()
	if len(all) != 1 || all[0].ID != "1" {
		t.Errorf("Rejected write changed the collection: %+v", all)
	}
}

func TestIndexContinuesAfterReopen(t *testing.T) {
	database := maple.NewMapleDB(maple.DefaultOptions())
	factory := func() (db.KVDB, error) { return database, nil }

	s1, _ := NewLocalStore(factory, serializer.NewJSONSerializer())
	_ = s1.Put(samplePost("1", "2024-01-01T00:00:00.000Z"))
	_ = s1.Put(samplePost("2", "2024-01-02T00:00:00.000Z"))

	// a second store on the same db must not issue stale indexes
	s2, _ := NewLocalStore(factory, serializer.NewJSONSerializer())
	if err := s2.Put(samplePost("3", "2024-01-03T00:00:00.000Z")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if n := s2.Len(); n != 3 {
		t.Errorf("Expected 3 posts, got %d", n)
	}
}

func TestConcurrentPut(t *testing.T) {
	s, _ := newStore(t, maple.DefaultOptions())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Put(samplePost(fmt.Sprintf("p%d", i), "2024-01-01T00:00:00.000Z")); err != nil {
				t.Errorf("Put failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := s.Len(); n != 20 {
		t.Errorf("Lost updates: expected 20 posts, got %d", n)
	}
}

func TestFactoryError(t *testing.T) {
	_, err := NewLocalStore(func() (db.KVDB, error) { return nil, fmt.Errorf("disk gone") }, serializer.NewJSONSerializer())
	if !store.IsCode(err, store.RetCStorageFailure) {
		t.Errorf("Expected StorageFailure, got %v", err)
	}
}
