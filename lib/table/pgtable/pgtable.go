package pgtable

import (
	"context"
	"errors"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/lib/table"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("table")

const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	excerpt TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	images TEXT NOT NULL DEFAULT '[]',
	author TEXT NOT NULL DEFAULT 'investa',
	stockSymbol TEXT,
	stockName TEXT,
	createdAt TEXT NOT NULL,
	updatedAt TEXT NOT NULL
)`

// PgTable stores posts in PostgreSQL
type PgTable struct {
	DB *pgxpool.Pool
}

// Open connects to the database at dsn and creates the posts table if needed
func Open(ctx context.Context, dsn string) (table.ITable, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres table needs a dsn")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	Logger.Infof("connected to postgres table")
	return &PgTable{DB: pool}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table.ITable)
// --------------------------------------------------------------------------

func (t *PgTable) List(ctx context.Context) ([]post.Post, error) {
	if t.DB == nil {
		return nil, fmt.Errorf("db is nil")
	}
	rows, err := t.DB.Query(ctx, "SELECT "+table.Columns+" FROM posts ORDER BY createdAt DESC")
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []post.Post{}
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		posts = append(posts, r.Post())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	store.SortLatest(posts)
	return posts, nil
}

func (t *PgTable) Get(ctx context.Context, id string) (post.Post, bool, error) {
	r, err := scan(t.DB.QueryRow(ctx, "SELECT "+table.Columns+" FROM posts WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return post.Post{}, false, nil
	}
	if err != nil {
		return post.Post{}, false, fmt.Errorf("query post %s: %w", id, err)
	}
	return r.Post(), true, nil
}

func (t *PgTable) Upsert(ctx context.Context, p post.Post) error {
	r, err := table.ToRow(p)
	if err != nil {
		return err
	}
	const q = `
	INSERT INTO posts (` + table.Columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		content = EXCLUDED.content,
		excerpt = EXCLUDED.excerpt,
		tags = EXCLUDED.tags,
		images = EXCLUDED.images,
		author = EXCLUDED.author,
		stockSymbol = EXCLUDED.stockSymbol,
		stockName = EXCLUDED.stockName,
		createdAt = EXCLUDED.createdAt,
		updatedAt = EXCLUDED.updatedAt;
	`
	_, err = t.DB.Exec(ctx, q,
		r.ID, r.Title, r.Content, r.Excerpt, r.Tags, r.Images, r.Author,
		r.StockSymbol, r.StockName, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.ID, err)
	}
	return nil
}

func (t *PgTable) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := t.DB.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete post %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *PgTable) Close() error {
	t.DB.Close()
	return nil
}

func scan(row pgx.Row) (table.Row, error) {
	var r table.Row
	err := row.Scan(&r.ID, &r.Title, &r.Content, &r.Excerpt, &r.Tags, &r.Images, &r.Author,
		&r.StockSymbol, &r.StockName, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
