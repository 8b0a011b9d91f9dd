package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
)

// NewJSONSerializer creates a new serializer using json encoding.
// This is the wire format of the published posts.json: an array, pretty-printed with two spaces.
func NewJSONSerializer() ISnapshotSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the ISnapshotSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISnapshotSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(posts []post.Post) ([]byte, error) {
	if posts == nil {
		posts = []post.Post{}
	}
	return json.MarshalIndent(posts, "", "  ")
}

func (j jsonSerializerImpl) Deserialize(b []byte) ([]post.Post, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("snapshot is not a JSON array")
	}
	var posts []post.Post
	if err := json.Unmarshal(trimmed, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}
