// Package serializer encodes the post collection. It defines a common interface and
// three implementations with different trade-offs.
//
// Key Components:
//
//   - ISnapshotSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: The wire format of the published posts.json, an array
//     pretty-printed with two spaces. Anything that is not an array (including null)
//     is rejected, so a broken remote is never mistaken for an empty one.
//
//   - binarySerializerImpl: Custom length-prefixed format with presence flags for the
//     optional fields. Smallest and fastest, used for the local cache.
//
//   - gobSerializerImpl: Go's gob encoding. Does not keep nil and empty slices apart.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
//
// Usage:
//
//	s := serializer.NewJSONSerializer()
//	data, err := s.Serialize(posts)
//	posts, err = s.Deserialize(data)
package serializer
