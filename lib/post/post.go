package post

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DefaultAuthor is used when a post carries no author
	DefaultAuthor = "investa"

	// TimeLayout is the timestamp layout written by this package (ISO-8601 with milliseconds, UTC)
	TimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// parseLayouts are the layouts accepted when reading a timestamp, in order
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// --------------------------------------------------------------------------
// Post
// --------------------------------------------------------------------------

// Post is the single content entity of the blog.
// Timestamps are kept as the strings found on the wire so that records with
// unparsable dates survive a read-modify-write cycle unchanged.
type Post struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Excerpt     string   `json:"excerpt"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
	Author      string   `json:"author"`
	StockSymbol string   `json:"stockSymbol,omitempty"`
	StockName   string   `json:"stockName,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// NewID returns a timestamp-derived identifier (milliseconds since epoch)
func NewID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// FormatTime formats t the way createdAt and updatedAt are written
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses an ISO-8601 timestamp. The boolean is false if s is empty or unparsable.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// New creates a fresh post with a new id and both timestamps set to now
func New(title, content string, now time.Time) Post {
	ts := FormatTime(now)
	return Post{
		ID:        NewID(now),
		Title:     title,
		Content:   content,
		Tags:      []string{},
		Images:    []string{},
		Author:    DefaultAuthor,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// CreatedTime returns the parsed createdAt timestamp
func (p Post) CreatedTime() (time.Time, bool) {
	return ParseTime(p.CreatedAt)
}

// EffectiveTimestamp returns updatedAt if present, createdAt otherwise.
// An updatedAt that is present but unparsable falls back to createdAt as well.
func (p Post) EffectiveTimestamp() (time.Time, bool) {
	if t, ok := ParseTime(p.UpdatedAt); ok {
		return t, true
	}
	return ParseTime(p.CreatedAt)
}

// Touch marks the post as modified at now. updatedAt never drops below createdAt.
func (p *Post) Touch(now time.Time) {
	if created, ok := p.CreatedTime(); ok && now.Before(created) {
		now = created
	}
	if p.CreatedAt == "" {
		p.CreatedAt = FormatTime(now)
	}
	p.UpdatedAt = FormatTime(now)
}

// WithDefaults returns a copy with the author defaulted and nil slices replaced by empty ones
func (p Post) WithDefaults() Post {
	c := p.Clone()
	if strings.TrimSpace(c.Author) == "" {
		c.Author = DefaultAuthor
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Images == nil {
		c.Images = []string{}
	}
	return c
}

// Clone returns a deep copy of the post
func (p Post) Clone() Post {
	c := p
	if p.Tags != nil {
		c.Tags = slices.Clone(p.Tags)
	}
	if p.Images != nil {
		c.Images = slices.Clone(p.Images)
	}
	return c
}

// HasStock reports whether the post references a stock
func (p Post) HasStock() bool {
	return p.StockSymbol != ""
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

var (
	ErrMissingID      = errors.New("post id is required")
	ErrMissingTitle   = errors.New("post title is required")
	ErrMissingContent = errors.New("post content is required")
	ErrTimeOrder      = errors.New("updatedAt must not be before createdAt")

	// ErrStockPair is a soft violation: stores accept such posts
	ErrStockPair = errors.New("stockSymbol and stockName should be set together")
)

// Validate checks the invariants of a single post.
// Errors are joined; use errors.Is to test for a specific violation.
func (p Post) Validate() error {
	var errs []error
	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, ErrMissingID)
	}
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, ErrMissingTitle)
	}
	if strings.TrimSpace(p.Content) == "" {
		errs = append(errs, ErrMissingContent)
	}
	created, cok := ParseTime(p.CreatedAt)
	updated, uok := ParseTime(p.UpdatedAt)
	if cok && uok && updated.Before(created) {
		errs = append(errs, fmt.Errorf("%w (createdAt=%s, updatedAt=%s)", ErrTimeOrder, p.CreatedAt, p.UpdatedAt))
	}
	if (p.StockSymbol == "") != (p.StockName == "") {
		errs = append(errs, ErrStockPair)
	}
	return errors.Join(errs...)
}

// IsSoft reports whether err contains only soft violations
func IsSoft(err error) bool {
	if err == nil {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !errors.Is(e, ErrStockPair) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, ErrStockPair)
}

// --------------------------------------------------------------------------
// Equality
// --------------------------------------------------------------------------

// Equal reports whole-record equality. Tag order is irrelevant, image order is not.
// A nil slice equals an empty slice.
func Equal(a, b Post) bool {
	if a.ID != b.ID || a.Title != b.Title || a.Content != b.Content || a.Excerpt != b.Excerpt ||
		a.Author != b.Author || a.StockSymbol != b.StockSymbol || a.StockName != b.StockName ||
		a.CreatedAt != b.CreatedAt || a.UpdatedAt != b.UpdatedAt {
		return false
	}
	if !slices.Equal(a.Images, b.Images) {
		return false
	}
	if len(a.Tags) != len(b.Tags) {
		return false
	}
	at, bt := slices.Clone(a.Tags), slices.Clone(b.Tags)
	slices.Sort(at)
	slices.Sort(bt)
	return slices.Equal(at, bt)
}

// IndexOf returns the position of the post with the given id or -1
func IndexOf(posts []Post, id string) int {
	return slices.IndexFunc(posts, func(p Post) bool { return p.ID == id })
}

// CloneAll deep-copies a collection
func CloneAll(posts []Post) []Post {
	if posts == nil {
		return nil
	}
	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}
