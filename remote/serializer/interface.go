package serializer

import "github.com/freerahn/stockblog/lib/post"

// ISnapshotSerializer is the interface for all post collection serializers
type ISnapshotSerializer interface {
	// Serialize serializes a post collection into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(posts []post.Post) ([]byte, error)
	// Deserialize deserializes a byte array into a post collection
	// A payload that is not a collection is an error
	Deserialize(b []byte) ([]post.Post, error)
}

// Name selects a serializer from configuration
type Name string

const (
	JSON   Name = "json"
	GOB    Name = "gob"
	Binary Name = "binary"
)

// New returns the serializer with the given name
func New(name Name) (ISnapshotSerializer, error) {
	switch name {
	case JSON, "":
		return NewJSONSerializer(), nil
	case GOB:
		return NewGOBSerializer(), nil
	case Binary:
		return NewBinarySerializer(), nil
	default:
		return nil, &UnknownError{Name: string(name)}
	}
}

// UnknownError is returned by New for an unsupported serializer name
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return "unknown serializer " + e.Name + " (must be json, gob or binary)"
}
