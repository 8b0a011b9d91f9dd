package lstore

import (
	"github.com/freerahn/stockblog/lib/db"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"sync/atomic"
)

// PostsKey is the db key holding the post collection
const PostsKey = "stock_blog_posts"

var Logger = logger.GetLogger("store")

type storeImpl struct {
	db    db.KVDB
	codec store.Codec
	index atomic.Uint64
	mu    sync.Mutex // serializes read-modify-write cycles
}

// NewLocalStore creates a new local post store.
// The collection is kept as a single blob under PostsKey, encoded with codec.
func NewLocalStore(factory store.DBFactory, codec store.Codec) (store.IPostStore, error) {
	database, err := factory()
	if err != nil {
		return nil, store.WrapError(store.RetCStorageFailure, "could not open local storage", err)
	}
	s := &storeImpl{
		db:    database,
		codec: codec,
	}
	// continue after the index found in a persisted snapshot
	s.index.Store(database.WriteIdx())
	return s, nil
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// decode reads the collection. A missing or empty blob is an empty collection,
// a blob the codec cannot read is an error.
func (s *storeImpl) decode() ([]post.Post, error) {
	raw, ok := s.db.Get(PostsKey)
	if !ok || len(raw) == 0 {
		return []post.Post{}, nil
	}
	posts, err := s.codec.Deserialize(raw)
	if err != nil {
		return nil, store.WrapError(store.RetCStorageFailure, "stored posts are unreadable", err)
	}
	if posts == nil {
		return []post.Post{}, nil
	}
	return posts, nil
}

// load reads the collection, failing soft to an empty one
func (s *storeImpl) load() []post.Post {
	posts, err := s.decode()
	if err != nil {
		Logger.Warningf("%v, treating as empty", err)
		return []post.Post{}
	}
	return posts
}

// write encodes and stores the collection
func (s *storeImpl) write(posts []post.Post) error {
	if posts == nil {
		posts = []post.Post{}
	}
	raw, err := s.codec.Serialize(posts)
	if err != nil {
		return store.WrapError(store.RetCStorageFailure, "could not encode posts", err)
	}
	if err := s.db.Set(PostsKey, raw, s.incAndGetIndex()); err != nil {
		Logger.Errorf("write of %d posts rejected: %v", len(posts), err)
		return store.WrapError(store.RetCStorageFailure, "local storage rejected the write", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) GetAll() []post.Post {
	return s.load()
}

func (s *storeImpl) GetByID(id string) (post.Post, bool) {
	posts := s.load()
	if i := post.IndexOf(posts, id); i >= 0 {
		return posts[i], true
	}
	return post.Post{}, false
}

func (s *storeImpl) GetLatest(limit int) []post.Post {
	return store.Latest(s.load(), limit)
}

func (s *storeImpl) Put(p post.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// never write over a collection that could not be read
	posts, err := s.decode()
	if err != nil {
		return err
	}
	if i := post.IndexOf(posts, p.ID); i >= 0 {
		posts[i] = p.Clone()
	} else {
		posts = append(posts, p.Clone())
	}
	return s.write(posts)
}

func (s *storeImpl) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.decode()
	if err != nil {
		return false, err
	}
	i := post.IndexOf(posts, id)
	if i < 0 {
		return false, nil
	}
	posts = append(posts[:i], posts[i+1:]...)
	if err := s.write(posts); err != nil {
		return false, err
	}
	return true, nil
}

// ReplaceAll writes over the stored blob even if it is unreadable, a sync
// with the remote is how a corrupt collection is recovered.
func (s *storeImpl) ReplaceAll(posts []post.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(post.CloneAll(posts))
}

func (s *storeImpl) Len() int {
	return len(s.load())
}

func (s *storeImpl) GetDBInfo() db.DatabaseInfo {
	return s.db.GetInfo()
}
