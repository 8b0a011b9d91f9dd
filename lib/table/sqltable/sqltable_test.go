package sqltable

import (
	"github.com/freerahn/stockblog/lib/table"
	"github.com/freerahn/stockblog/lib/table/tabletesting"
	"path/filepath"
	"testing"
)

func Test(t *testing.T) {
	tabletesting.RunTableTests(t, "SQLite", func(t *testing.T) table.ITable {
		tbl, err := Open(filepath.Join(t.TempDir(), "data", "posts.db"))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		return tbl
	})
}

func TestInMemory(t *testing.T) {
	tabletesting.RunTableTests(t, "SQLiteMemory", func(t *testing.T) table.ITable {
		tbl, err := Open(":memory:")
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		return tbl
	})
}
