// Package persist makes any db.KVDB durable by writing its snapshot to a file
// before each write returns. The file is written to a temporary name and renamed
// over the target, so a crash leaves either the old or the new snapshot. When the
// snapshot cannot be written the write is undone and the error is returned.
package persist
