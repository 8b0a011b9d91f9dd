package server

import (
	"encoding/json"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/stats"
	"github.com/freerahn/stockblog/lib/table"
	"github.com/freerahn/stockblog/remote/serializer"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// listKey is the cache key of the encoded post list
const listKey = "posts"

// NewPostsAdapter serves the posts resource from tbl. Views of single posts are
// counted in tracker if it is not nil.
func NewPostsAdapter(tbl table.ITable, tracker *stats.Tracker, serializer serializer.ISnapshotSerializer) IServerAdapter {
	return &postsAdapterImpl{
		table:      tbl,
		tracker:    tracker,
		serializer: serializer,
		cache:      xsync.NewMapOf[string, []byte](),
		now:        time.Now,
	}
}

type postsAdapterImpl struct {
	table      table.ITable
	tracker    *stats.Tracker
	serializer serializer.ISnapshotSerializer

	// encoded responses, dropped on every write
	cache *xsync.MapOf[string, []byte]
	// bumped after every committed write, a list read under an older
	// generation is not cached
	generation atomic.Uint64

	now func() time.Time
}

// postUpdate is the body of a PUT; absent fields are left unchanged
type postUpdate struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Excerpt     *string   `json:"excerpt"`
	Tags        *[]string `json:"tags"`
	Images      *[]string `json:"images"`
	Author      *string   `json:"author"`
	StockSymbol *string   `json:"stockSymbol"`
	StockName   *string   `json:"stockName"`
}

func (a *postsAdapterImpl) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /posts", a.list)
	mux.HandleFunc("GET /posts/{id}", a.get)
	mux.HandleFunc("POST /posts", a.create)
	mux.HandleFunc("PUT /posts/{id}", a.update)
	mux.HandleFunc("DELETE /posts", a.delete)
	mux.HandleFunc("DELETE /posts/{id}", a.delete)
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (a *postsAdapterImpl) list(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	body, ok := a.cache.Load(listKey)
	if !ok {
		gen := a.generation.Load()
		posts, err := a.table.List(r.Context())
		if err != nil {
			Logger.Errorf("failed to list posts: %v", err)
			countRequest("list", http.StatusInternalServerError)
			writeError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		if body, err = a.serializer.Serialize(posts); err != nil {
			Logger.Errorf("failed to encode posts: %v", err)
			countRequest("list", http.StatusInternalServerError)
			writeError(w, http.StatusInternalServerError, "failed to encode posts")
			return
		}
		a.storeList(gen, body)
	}

	countRequest("list", http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		Logger.Debugf("failed to write response: %v", err)
	}
}

// storeList caches body unless a write committed since gen was read. The
// check runs inside Compute, so it is ordered with the Delete in invalidate.
func (a *postsAdapterImpl) storeList(gen uint64, body []byte) {
	a.cache.Compute(listKey, func(old []byte, loaded bool) ([]byte, bool) {
		if a.generation.Load() != gen {
			return old, !loaded
		}
		return body, false
	})
}

// invalidate drops the cached list, called after a write is committed
func (a *postsAdapterImpl) invalidate() {
	a.generation.Add(1)
	a.cache.Delete(listKey)
}

func (a *postsAdapterImpl) get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok, err := a.table.Get(r.Context(), id)
	switch {
	case err != nil:
		Logger.Errorf("failed to read post %s: %v", id, err)
		countRequest("get", http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "failed to read post")
		return
	case !ok:
		countRequest("get", http.StatusNotFound)
		writeError(w, http.StatusNotFound, "post %s not found", id)
		return
	}

	if a.tracker != nil {
		if err := a.tracker.RecordView(id); err != nil {
			Logger.Warningf("failed to count view of %s: %v", id, err)
		}
	}
	countRequest("get", http.StatusOK)
	writeJSON(w, http.StatusOK, p)
}

// create upserts a post. Timestamps sent by the client are kept so that
// reconciling clients can push their copies unchanged.
func (a *postsAdapterImpl) create(w http.ResponseWriter, r *http.Request) {
	var p post.Post
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&p); err != nil {
		countRequest("create", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid post: %v", err)
		return
	}
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		countRequest("create", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	now := a.now()
	p = p.WithDefaults()
	if strings.TrimSpace(p.ID) == "" {
		p.ID = post.NewID(now)
	}
	if p.CreatedAt == "" {
		p.CreatedAt = post.FormatTime(now)
	}
	if p.UpdatedAt == "" {
		p.UpdatedAt = p.CreatedAt
	}

	if err := a.table.Upsert(r.Context(), p); err != nil {
		Logger.Errorf("failed to store post %s: %v", p.ID, err)
		countRequest("create", http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "failed to store post")
		return
	}
	a.invalidate()

	countRequest("create", http.StatusCreated)
	writeJSON(w, http.StatusCreated, successResponse{Success: true, ID: p.ID})
}

func (a *postsAdapterImpl) update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var u postUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&u); err != nil {
		countRequest("update", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "invalid post: %v", err)
		return
	}

	p, ok, err := a.table.Get(r.Context(), id)
	switch {
	case err != nil:
		Logger.Errorf("failed to read post %s: %v", id, err)
		countRequest("update", http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "failed to read post")
		return
	case !ok:
		countRequest("update", http.StatusNotFound)
		writeError(w, http.StatusNotFound, "post %s not found", id)
		return
	}

	apply(&p, u)
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		countRequest("update", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	p.Touch(a.now())

	if err := a.table.Upsert(r.Context(), p); err != nil {
		Logger.Errorf("failed to update post %s: %v", id, err)
		countRequest("update", http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}
	a.invalidate()

	countRequest("update", http.StatusOK)
	writeJSON(w, http.StatusOK, successResponse{Success: true, ID: id})
}

// delete accepts the id as path segment or as ?id= query parameter
func (a *postsAdapterImpl) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		id = r.URL.Query().Get("id")
	}
	if id == "" {
		countRequest("delete", http.StatusBadRequest)
		writeError(w, http.StatusBadRequest, "post id is required")
		return
	}

	removed, err := a.table.Delete(r.Context(), id)
	switch {
	case err != nil:
		Logger.Errorf("failed to delete post %s: %v", id, err)
		countRequest("delete", http.StatusInternalServerError)
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	case !removed:
		countRequest("delete", http.StatusNotFound)
		writeError(w, http.StatusNotFound, "post %s not found", id)
		return
	}
	a.invalidate()

	countRequest("delete", http.StatusOK)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func apply(p *post.Post, u postUpdate) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.Excerpt != nil {
		p.Excerpt = *u.Excerpt
	}
	if u.Tags != nil {
		p.Tags = *u.Tags
	}
	if u.Images != nil {
		p.Images = *u.Images
	}
	if u.Author != nil {
		p.Author = *u.Author
	}
	if u.StockSymbol != nil {
		p.StockSymbol = *u.StockSymbol
	}
	if u.StockName != nil {
		p.StockName = *u.StockName
	}
}
