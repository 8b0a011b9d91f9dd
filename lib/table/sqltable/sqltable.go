package sqltable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/lib/table"
	"github.com/lni/dragonboat/v4/logger"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
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

type sqlTable struct {
	db *sql.DB
}

// Open opens (and if needed creates) the sqlite database at path.
// ":memory:" opens a private in-memory database.
func Open(path string) (table.ITable, error) {
	if path == "" {
		path = table.DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create table dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	Logger.Infof("opened sqlite table at %s", path)
	return &sqlTable{db: db}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see table.ITable)
// --------------------------------------------------------------------------

func (t *sqlTable) List(ctx context.Context) ([]post.Post, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT "+table.Columns+" FROM posts ORDER BY createdAt DESC")
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
	// string order misplaces mixed offsets and unparsable dates
	store.SortLatest(posts)
	return posts, nil
}

func (t *sqlTable) Get(ctx context.Context, id string) (post.Post, bool, error) {
	row := t.db.QueryRowContext(ctx, "SELECT "+table.Columns+" FROM posts WHERE id = ?", id)
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return post.Post{}, false, nil
	}
	if err != nil {
		return post.Post{}, false, fmt.Errorf("query post %s: %w", id, err)
	}
	return r.Post(), true, nil
}

func (t *sqlTable) Upsert(ctx context.Context, p post.Post) error {
	r, err := table.ToRow(p)
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx, `
	INSERT INTO posts (`+table.Columns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		excerpt = excluded.excerpt,
		tags = excluded.tags,
		images = excluded.images,
		author = excluded.author,
		stockSymbol = excluded.stockSymbol,
		stockName = excluded.stockName,
		createdAt = excluded.createdAt,
		updatedAt = excluded.updatedAt`,
		r.ID, r.Title, r.Content, r.Excerpt, r.Tags, r.Images, r.Author,
		r.StockSymbol, r.StockName, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.ID, err)
	}
	return nil
}

func (t *sqlTable) Delete(ctx context.Context, id string) (bool, error) {
	res, err := t.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete post %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *sqlTable) Close() error {
	return t.db.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (table.Row, error) {
	var r table.Row
	err := s.Scan(&r.ID, &r.Title, &r.Content, &r.Excerpt, &r.Tags, &r.Images, &r.Author,
		&r.StockSymbol, &r.StockName, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}
