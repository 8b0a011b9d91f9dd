// Package table stores posts in a relational table for the posts REST service.
//
// Schema (both drivers):
//
//	posts(id TEXT PRIMARY KEY, title, content, excerpt, tags TEXT, images TEXT,
//	      author, stockSymbol NULL, stockName NULL, createdAt, updatedAt)
//
// tags and images hold JSON arrays. Timestamps are kept as the ISO strings of the
// posts so the table round-trips them unchanged.
//
// Implementations:
//
//   - sqltable: database/sql with the pure Go modernc.org/sqlite driver.
//   - pgtable: PostgreSQL through a pgx connection pool.
package table
