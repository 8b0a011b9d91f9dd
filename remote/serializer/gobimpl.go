package serializer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
)

// NewGOBSerializer creates a new serializer using Go's binary gob format
func NewGOBSerializer() ISnapshotSerializer {
	return &gobSerializerImpl{}
}

// gobSerializerImpl implements the ISnapshotSerializer interface using gob encoding
type gobSerializerImpl struct {
}

// gobSnapshot wraps the collection so an empty one still encodes.
// gob drops empty slices, so the posts whose tags or images are empty
// but not nil are listed by position.
type gobSnapshot struct {
	Posts       []post.Post
	EmptyTags   []int
	EmptyImages []int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISnapshotSerializer)
// --------------------------------------------------------------------------

func (g gobSerializerImpl) Serialize(posts []post.Post) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	snap := gobSnapshot{Posts: posts}
	for i := range posts {
		if posts[i].Tags != nil && len(posts[i].Tags) == 0 {
			snap.EmptyTags = append(snap.EmptyTags, i)
		}
		if posts[i].Images != nil && len(posts[i].Images) == 0 {
			snap.EmptyImages = append(snap.EmptyImages, i)
		}
	}
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobSerializerImpl) Deserialize(b []byte) ([]post.Post, error) {
	buf := bytes.NewBuffer(b)
	dec := gob.NewDecoder(buf)
	var snap gobSnapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Posts == nil {
		snap.Posts = []post.Post{}
	}
	for _, i := range snap.EmptyTags {
		if i < 0 || i >= len(snap.Posts) {
			return nil, fmt.Errorf("empty tags marker %d out of range", i)
		}
		snap.Posts[i].Tags = []string{}
	}
	for _, i := range snap.EmptyImages {
		if i < 0 || i >= len(snap.Posts) {
			return nil, fmt.Errorf("empty images marker %d out of range", i)
		}
		snap.Posts[i].Images = []string{}
	}
	return snap.Posts, nil
}
