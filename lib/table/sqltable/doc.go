// Package sqltable implements table.ITable on SQLite using database/sql and the
// cgo-free modernc.org/sqlite driver. The pool is limited to one connection, which
// serializes writers and keeps ":memory:" databases consistent.
package sqltable
