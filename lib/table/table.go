package table

import (
	"context"
	"encoding/json"
	"github.com/freerahn/stockblog/lib/post"
)

// ITable is the relational storage behind the posts REST service
type ITable interface {
	// List returns all posts ordered by createdAt descending.
	List(ctx context.Context) ([]post.Post, error)
	// Get returns the post with the given id. The boolean is false if it does not exist.
	Get(ctx context.Context, id string) (post.Post, bool, error)
	// Upsert inserts a post or replaces the post with the same id.
	Upsert(ctx context.Context, p post.Post) error
	// Delete removes a post and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// Close releases the connection pool.
	Close() error
}

// Driver names a table implementation
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// DefaultSQLitePath is used when no DSN is configured for sqlite
const DefaultSQLitePath = "data/posts.db"

// Columns lists the posts columns in the order every implementation reads and writes them
const Columns = "id, title, content, excerpt, tags, images, author, stockSymbol, stockName, createdAt, updatedAt"

// Row is a post in its column representation
type Row struct {
	ID, Title, Content, Excerpt string
	Tags, Images                string // JSON arrays
	Author                      string
	StockSymbol, StockName      *string
	CreatedAt, UpdatedAt        string
}

// ToRow converts a post for writing. Missing author and lists get their defaults.
func ToRow(p post.Post) (Row, error) {
	p = p.WithDefaults()
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return Row{}, err
	}
	images, err := json.Marshal(p.Images)
	if err != nil {
		return Row{}, err
	}
	return Row{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Excerpt:     p.Excerpt,
		Tags:        string(tags),
		Images:      string(images),
		Author:      p.Author,
		StockSymbol: nullable(p.StockSymbol),
		StockName:   nullable(p.StockName),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

// Post converts a row read from the table. Unreadable list columns become empty lists.
func (r Row) Post() post.Post {
	p := post.Post{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		Excerpt:   r.Excerpt,
		Author:    r.Author,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.StockSymbol != nil {
		p.StockSymbol = *r.StockSymbol
	}
	if r.StockName != nil {
		p.StockName = *r.StockName
	}
	if err := json.Unmarshal([]byte(r.Tags), &p.Tags); err != nil || p.Tags == nil {
		p.Tags = []string{}
	}
	if err := json.Unmarshal([]byte(r.Images), &p.Images); err != nil || p.Images == nil {
		p.Images = []string{}
	}
	return p
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
