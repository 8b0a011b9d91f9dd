// Package pgtable implements table.ITable on PostgreSQL with a pgxpool connection pool.
package pgtable
