package reconcile

import (
	"github.com/freerahn/stockblog/lib/post"
)

// Report lists what a merge did, per post id
type Report struct {
	Added    []string // unknown locally, appended
	Replaced []string // remote copy was strictly newer
	Kept     []string // local copy was newer, equal or the remote timestamp was unreadable
}

// Changed reports whether the merge result differs from the local collection
func (r Report) Changed() bool {
	return len(r.Added) > 0 || len(r.Replaced) > 0
}

// Merge reconciles a local and a remote collection with last-write-wins per id.
//
// The result starts as a copy of local. Each remote post is appended if its id is
// unknown, or replaces the local post in place if its effective timestamp is
// strictly later. Ties keep the local post. A remote post with an unreadable
// timestamp never replaces anything, while a local post with an unreadable
// timestamp is replaced by any remote post with a readable one.
// Remote posts with duplicate ids are handled in order against the result so far.
//
// Merge never removes posts and neither input is modified.
func Merge(local, remote []post.Post) ([]post.Post, Report) {
	merged := make([]post.Post, 0, len(local)+len(remote))
	index := make(map[string]int, len(local)+len(remote))
	for _, p := range local {
		if _, ok := index[p.ID]; !ok {
			index[p.ID] = len(merged)
		}
		merged = append(merged, p.Clone())
	}

	var report Report
	for _, r := range remote {
		i, ok := index[r.ID]
		if !ok {
			index[r.ID] = len(merged)
			merged = append(merged, r.Clone())
			report.Added = append(report.Added, r.ID)
			continue
		}
		if newer(r, merged[i]) {
			merged[i] = r.Clone()
			report.Replaced = append(report.Replaced, r.ID)
		} else {
			report.Kept = append(report.Kept, r.ID)
		}
	}
	return merged, report
}

// newer reports whether remote wins against local
func newer(remote, local post.Post) bool {
	rt, rok := remote.EffectiveTimestamp()
	if !rok {
		return false
	}
	lt, lok := local.EffectiveTimestamp()
	if !lok {
		return true
	}
	return rt.After(lt)
}
