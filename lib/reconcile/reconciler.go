package reconcile

import (
	"context"
	"errors"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"time"
)

var Logger = logger.GetLogger("reconcile")

// DefaultFetchTimeout bounds a single remote fetch
const DefaultFetchTimeout = 5 * time.Second

// --------------------------------------------------------------------------
// Result
// --------------------------------------------------------------------------

// Status is the outcome of a sync
type Status int

const (
	StatusSynced          Status = iota // remote merged into the local store
	StatusSkippedCooldown               // last successful sync is too recent
	StatusSkippedNoRemote               // the backend cannot be fetched from
	StatusFailed                        // fetch or commit failed, the local store is unchanged
)

func (s Status) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusSkippedCooldown:
		return "skipped_cooldown"
	case StatusSkippedNoRemote:
		return "skipped_no_remote"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes a finished sync
type Result struct {
	Status  Status
	Fetched int    // number of remote posts
	Report  Report // only set for StatusSynced
	Err     error  // only set for StatusFailed
}

// --------------------------------------------------------------------------
// Reconciler
// --------------------------------------------------------------------------

// Reconciler pulls the remote collection into the local store
type Reconciler struct {
	store   store.IPostStore
	backend store.IBackend
	state   *SyncState

	// FetchTimeout bounds the remote fetch, DefaultFetchTimeout if zero
	FetchTimeout time.Duration

	syncMu  sync.Mutex // one sync at a time
	writeMu sync.Mutex // serializes read-modify-write cycles on the store
	now     func() time.Time
}

// NewReconciler creates a reconciler for the given store, backend and state
func NewReconciler(s store.IPostStore, backend store.IBackend, state *SyncState) *Reconciler {
	return &Reconciler{
		store:        s,
		backend:      backend,
		state:        state,
		FetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
}

// State returns the sync state
func (r *Reconciler) State() *SyncState {
	return r.state
}

// Sync merges the remote collection into the local store unless the last successful
// sync is within the cooldown. Failures are logged and reported in the result,
// the local store is only written on success.
func (r *Reconciler) Sync(ctx context.Context) Result {
	return r.sync(ctx, false)
}

// ForceSync is Sync without the cooldown check
func (r *Reconciler) ForceSync(ctx context.Context) Result {
	return r.sync(ctx, true)
}

// EnsureSeeded fills an empty store from the remote and returns all posts
func (r *Reconciler) EnsureSeeded(ctx context.Context) []post.Post {
	if r.store.Len() == 0 && r.backend.SupportsFeature(store.FeatureFetch) {
		if res := r.ForceSync(ctx); res.Status == StatusSynced {
			Logger.Infof("seeded local store with %d posts", len(res.Report.Added))
		}
	}
	return r.store.GetAll()
}

func (r *Reconciler) sync(ctx context.Context, force bool) (res Result) {
	defer func() { countSync(res.Status) }()

	if !r.backend.SupportsFeature(store.FeatureFetch) {
		return Result{Status: StatusSkippedNoRemote}
	}

	r.syncMu.Lock()
	defer r.syncMu.Unlock()

	if !force && !r.state.Due(r.now()) {
		Logger.Debugf("sync skipped, last sync at %s", r.state.LastSync().Format(time.RFC3339))
		return Result{Status: StatusSkippedCooldown}
	}

	remote, err := r.fetch(ctx)
	if err != nil {
		Logger.Warningf("sync failed: %v", err)
		return Result{Status: StatusFailed, Err: err}
	}

	report, err := r.commit(remote)
	if err != nil {
		Logger.Errorf("sync could not commit: %v", err)
		return Result{Status: StatusFailed, Fetched: len(remote), Err: err}
	}

	if err := r.state.MarkSynced(r.now()); err != nil {
		// the merge is stored, only the cooldown is lost
		Logger.Warningf("%v", err)
	}
	Logger.Infof("synced %d remote posts: %d added, %d replaced, %d kept",
		len(remote), len(report.Added), len(report.Replaced), len(report.Kept))
	return Result{Status: StatusSynced, Fetched: len(remote), Report: report}
}

// fetch reads the remote collection with a bounded timeout. An empty collection is an error.
func (r *Reconciler) fetch(ctx context.Context) (remote []post.Post, err error) {
	timeout := r.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	timed(fetchTimer, func() {
		remote, err = r.backend.Fetch(ctx)
	})
	if err != nil {
		var storeErr *store.Error
		if errors.As(err, &storeErr) {
			return nil, err
		}
		return nil, store.WrapError(store.RetCRemoteFetchFailure, "fetch failed", err)
	}
	if len(remote) == 0 {
		return nil, store.NewError(store.RetCRemoteFetchFailure, "remote collection is empty")
	}
	return remote, nil
}

// commit merges remote into the store in a single write
func (r *Reconciler) commit(remote []post.Post) (Report, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	merged, report := Merge(r.store.GetAll(), remote)
	if !report.Changed() {
		return report, nil
	}
	if err := r.store.ReplaceAll(merged); err != nil {
		return Report{}, err
	}
	return report, nil
}
