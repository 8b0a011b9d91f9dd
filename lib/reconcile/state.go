package reconcile

import (
	"fmt"
	"github.com/freerahn/stockblog/lib/db"
	"strconv"
	"sync"
	"time"
)

// LastSyncKey is the db key holding the time of the last successful sync (unix ms)
const LastSyncKey = "stock_blog_last_sync"

// DefaultCooldown is the minimum time between two regular syncs
const DefaultCooldown = 5 * time.Minute

// SyncState owns the time of the last successful sync and the cooldown derived from it
type SyncState struct {
	db       db.KVDB
	cooldown time.Duration

	mu       sync.Mutex
	lastSync time.Time
}

// NewSyncState loads the state from database. A missing or unreadable value means never synced.
// A cooldown <= 0 uses DefaultCooldown.
func NewSyncState(database db.KVDB, cooldown time.Duration) *SyncState {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	s := &SyncState{db: database, cooldown: cooldown}
	if raw, ok := database.Get(LastSyncKey); ok {
		if ms, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			s.lastSync = time.UnixMilli(ms)
		} else {
			Logger.Warningf("ignoring unreadable last sync time %q", raw)
		}
	}
	return s
}

// LastSync returns the time of the last successful sync, zero if there was none
func (s *SyncState) LastSync() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync
}

// Cooldown returns the configured cooldown
func (s *SyncState) Cooldown() time.Duration {
	return s.cooldown
}

// Due reports whether the cooldown has passed at now
func (s *SyncState) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync.IsZero() || now.Sub(s.lastSync) >= s.cooldown
}

// MarkSynced records a successful sync at now
func (s *SyncState) MarkSynced(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := []byte(strconv.FormatInt(now.UnixMilli(), 10))
	if err := s.db.Set(LastSyncKey, raw, s.db.WriteIdx()+1); err != nil {
		return fmt.Errorf("store last sync time: %w", err)
	}
	s.lastSync = time.UnixMilli(now.UnixMilli())
	return nil
}
