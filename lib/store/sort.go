package store

import (
	"github.com/freerahn/stockblog/lib/post"
	"slices"
)

// SortLatest sorts posts by createdAt descending in place.
// Posts without a parsable createdAt go last. The sort is stable.
func SortLatest(posts []post.Post) {
	slices.SortStableFunc(posts, func(a, b post.Post) int {
		ta, aok := a.CreatedTime()
		tb, bok := b.CreatedTime()
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case !aok && !bok:
			return 0
		}
		return tb.Compare(ta)
	})
}

// Latest returns a sorted copy of posts truncated to limit (limit <= 0 means all)
func Latest(posts []post.Post, limit int) []post.Post {
	out := post.CloneAll(posts)
	if out == nil {
		out = []post.Post{}
	}
	SortLatest(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
