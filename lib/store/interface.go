package store

import (
	"errors"
	"fmt"
	"github.com/freerahn/stockblog/lib/db"
	"github.com/freerahn/stockblog/lib/post"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// DBFactory is a function type that creates a new db used by the store.
// This is used to abstract the creation of the db from the store implementation.
type DBFactory func() (db.KVDB, error)

// Codec encodes the post collection into the blob kept in the db.
// The serializers in remote/serializer satisfy it.
type Codec interface {
	Serialize(posts []post.Post) ([]byte, error)
	Deserialize(b []byte) ([]post.Post, error)
}

// IPostStore is the durable local collection of posts.
// Reads never fail; a corrupt or unavailable storage reads as empty.
// Writes return a *Error with RetCStorageFailure when the storage rejects them.
// Put and Delete also fail instead of writing over a collection they cannot read.
type IPostStore interface {
	// GetAll returns all posts in storage order.
	GetAll() (posts []post.Post)
	// GetByID returns the post with the given id. The boolean is false if it does not exist.
	GetByID(id string) (p post.Post, found bool)
	// GetLatest returns posts sorted by createdAt descending, truncated to limit.
	// A limit <= 0 returns all posts.
	GetLatest(limit int) (posts []post.Post)
	// Put inserts a post, or replaces the post with the same id in place.
	Put(p post.Post) (err error)
	// Delete removes the post with the given id and reports whether it existed.
	Delete(id string) (removed bool, err error)
	// ReplaceAll replaces the whole collection in a single write.
	ReplaceAll(posts []post.Post) (err error)
	// Len returns the number of stored posts.
	Len() (n int)
	// GetDBInfo returns metadata about the database underlying the store.
	GetDBInfo() (info db.DatabaseInfo)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
	Err  error   // The underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StoreError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new StoreError with the given code, message and cause.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// IsCode reports whether err is or wraps a *Error with the given code
func IsCode(err error, code RetCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the backend.
	RetCStorageFailure                      // 3: Durable storage rejected a write.
	RetCRemoteFetchFailure                  // 4: Remote snapshot could not be fetched or decoded.
	RetCRemotePushFailure                   // 5: Remote write failed.
	RetCInvalidPost                         // 6: The post violates an invariant.
	RetCNotFound                            // 7: No post with the given id.
	RetCNoCredential                        // 8: A remote write needs a token that is not configured.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCStorageFailure:
		return "StorageFailure"
	case RetCRemoteFetchFailure:
		return "RemoteFetchFailure"
	case RetCRemotePushFailure:
		return "RemotePushFailure"
	case RetCInvalidPost:
		return "InvalidPost"
	case RetCNotFound:
		return "NotFound"
	case RetCNoCredential:
		return "NoCredential"
	default:
		return "Unknown"
	}
}
