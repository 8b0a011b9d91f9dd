package stats

import (
	"encoding/json"
	"fmt"
	"github.com/freerahn/stockblog/lib/db"
	"github.com/lni/dragonboat/v4/logger"
	"sort"
	"sync"
	"time"
)

// StatsKey is the db key holding the counters
const StatsKey = "stock_blog_stats"

// DateLayout is the layout of the visitor buckets
const DateLayout = "2006-01-02"

var Logger = logger.GetLogger("stats")

// Stats holds visitor counts per day and view counts per post id
type Stats struct {
	Visitors map[string]int `json:"visitors"`
	Views    map[string]int `json:"views"`
}

// TotalVisitors sums all daily buckets
func (s Stats) TotalVisitors() int {
	n := 0
	for _, v := range s.Visitors {
		n += v
	}
	return n
}

// TotalViews sums the views of all posts
func (s Stats) TotalViews() int {
	n := 0
	for _, v := range s.Views {
		n += v
	}
	return n
}

// TopPosts returns the ids with the most views, highest first. Ties are ordered by id.
func (s Stats) TopPosts(limit int) []string {
	ids := make([]string, 0, len(s.Views))
	for id := range s.Views {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s.Views[ids[i]] != s.Views[ids[j]] {
			return s.Views[ids[i]] > s.Views[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

func empty() Stats {
	return Stats{Visitors: map[string]int{}, Views: map[string]int{}}
}

// Tracker counts visitors and post views in a KVDB
type Tracker struct {
	db db.KVDB
	mu sync.Mutex
}

// NewTracker creates a tracker on database
func NewTracker(database db.KVDB) *Tracker {
	return &Tracker{db: database}
}

// Get returns the current counters. Missing or unreadable data reads as empty stats.
func (t *Tracker) Get() Stats {
	raw, ok := t.db.Get(StatsKey)
	if !ok {
		return empty()
	}
	var s Stats
	if err := json.Unmarshal(raw, &s); err != nil {
		Logger.Warningf("stats are unreadable, starting over: %v", err)
		return empty()
	}
	if s.Visitors == nil {
		s.Visitors = map[string]int{}
	}
	if s.Views == nil {
		s.Views = map[string]int{}
	}
	return s
}

// RecordVisitor bumps the visitor bucket of the day of now (local time)
func (t *Tracker) RecordVisitor(now time.Time) error {
	return t.update(func(s *Stats) {
		s.Visitors[now.Format(DateLayout)]++
	})
}

// RecordView bumps the view counter of a post. An empty id is ignored.
func (t *Tracker) RecordView(id string) error {
	if id == "" {
		return nil
	}
	return t.update(func(s *Stats) {
		s.Views[id]++
	})
}

func (t *Tracker) update(fn func(s *Stats)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.Get()
	fn(&s)
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := t.db.Set(StatsKey, raw, t.db.WriteIdx()+1); err != nil {
		return fmt.Errorf("store stats: %w", err)
	}
	return nil
}
