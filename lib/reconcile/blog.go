package reconcile

import (
	"context"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"strings"
	"time"
)

// Blog is the entry point for reading and writing posts. Writes go to the local
// store first and are then propagated to the backend in the background.
type Blog struct {
	store      store.IPostStore
	backend    store.IBackend
	reconciler *Reconciler
	propagator *Propagator

	// SyncAfterWrite runs a cooldown gated sync once a propagation has finished
	SyncAfterWrite bool

	now func() time.Time
}

// NewBlog wires a store, its backend and the sync state together
func NewBlog(s store.IPostStore, backend store.IBackend, state *SyncState) *Blog {
	return &Blog{
		store:          s,
		backend:        backend,
		reconciler:     NewReconciler(s, backend, state),
		propagator:     NewPropagator(backend),
		SyncAfterWrite: true,
		now:            time.Now,
	}
}

// Reconciler returns the reconciler used by the blog
func (b *Blog) Reconciler() *Reconciler {
	return b.reconciler
}

// Propagator returns the propagator used by the blog
func (b *Blog) Propagator() *Propagator {
	return b.propagator
}

// Store returns the local store
func (b *Blog) Store() store.IPostStore {
	return b.store
}

// --------------------------------------------------------------------------
// Write
// --------------------------------------------------------------------------

// Save creates or updates a post. A missing id is generated, author and lists are
// defaulted, createdAt is kept for existing posts and updatedAt is set to now.
// The returned error is only about the local write (RetCInvalidPost or RetCStorageFailure);
// the returned task reports the propagation.
func (b *Blog) Save(ctx context.Context, p post.Post) (post.Post, *PushTask, error) {
	now := b.now()
	p = p.WithDefaults()
	if strings.TrimSpace(p.ID) == "" {
		p.ID = post.NewID(now)
	}

	b.reconciler.writeMu.Lock()
	if existing, ok := b.store.GetByID(p.ID); ok && p.CreatedAt == "" {
		p.CreatedAt = existing.CreatedAt
	}
	p.Touch(now)

	if err := p.Validate(); !post.IsSoft(err) {
		b.reconciler.writeMu.Unlock()
		return post.Post{}, nil, store.WrapError(store.RetCInvalidPost, "post "+p.ID+" is invalid", err)
	} else if err != nil {
		Logger.Warningf("saving post %s anyway: %v", p.ID, err)
	}

	if err := b.store.Put(p); err != nil {
		b.reconciler.writeMu.Unlock()
		return post.Post{}, nil, err
	}
	all := b.store.GetAll()
	b.reconciler.writeMu.Unlock()

	// per record backends only need the changed post
	toPush := all
	if b.backend.SupportsFeature(store.FeatureRemove) {
		toPush = []post.Post{p}
	}
	return p, b.afterWrite(ctx, b.propagator.Propagate(ctx, toPush)), nil
}

// Remove deletes a post locally and propagates the deletion.
// A missing post is reported with RetCNotFound.
func (b *Blog) Remove(ctx context.Context, id string) (*PushTask, error) {
	b.reconciler.writeMu.Lock()
	removed, err := b.store.Delete(id)
	if err != nil {
		b.reconciler.writeMu.Unlock()
		return nil, err
	}
	if !removed {
		b.reconciler.writeMu.Unlock()
		return nil, store.NewError(store.RetCNotFound, "no post with id "+id)
	}
	remaining := b.store.GetAll()
	b.reconciler.writeMu.Unlock()

	return b.afterWrite(ctx, b.propagator.PropagateRemove(ctx, id, remaining)), nil
}

// afterWrite chains the optional sync behind a propagation
func (b *Blog) afterWrite(ctx context.Context, task *PushTask) *PushTask {
	if !b.SyncAfterWrite || !b.backend.SupportsFeature(store.FeatureFetch) {
		return task
	}
	chained := &PushTask{done: make(chan struct{})}
	b.propagator.wg.Add(1)
	go func() {
		defer b.propagator.wg.Done()
		defer close(chained.done)
		chained.result = task.Wait()
		b.reconciler.Sync(context.WithoutCancel(ctx))
	}()
	return chained
}

// Wait blocks until all background work started by writes has finished
func (b *Blog) Wait() {
	b.propagator.Wait()
}

// --------------------------------------------------------------------------
// Read
// --------------------------------------------------------------------------

// All returns every post, seeding an empty store from the remote first
func (b *Blog) All(ctx context.Context) []post.Post {
	return b.reconciler.EnsureSeeded(ctx)
}

// Latest returns the newest posts by createdAt
func (b *Blog) Latest(ctx context.Context, limit int) []post.Post {
	return store.Latest(b.reconciler.EnsureSeeded(ctx), limit)
}

// Get returns the post with the given id
func (b *Blog) Get(ctx context.Context, id string) (post.Post, bool) {
	posts := b.reconciler.EnsureSeeded(ctx)
	if i := post.IndexOf(posts, id); i >= 0 {
		return posts[i], true
	}
	return post.Post{}, false
}

// Sync runs a cooldown gated sync
func (b *Blog) Sync(ctx context.Context) Result {
	return b.reconciler.Sync(ctx)
}

// ForceSync runs a sync regardless of the cooldown
func (b *Blog) ForceSync(ctx context.Context) Result {
	return b.reconciler.ForceSync(ctx)
}
