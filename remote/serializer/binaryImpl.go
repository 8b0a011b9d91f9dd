package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() ISnapshotSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements ISnapshotSerializer using a custom binary format
type binarySerializerImpl struct {
}

// binaryVersion is the first byte of every snapshot
const binaryVersion byte = 1

// Bit flags to indicate which optional fields are present
const (
	hasExcerpt     uint16 = 1 << 0
	hasTags        uint16 = 1 << 1
	hasImages      uint16 = 1 << 2
	hasAuthor      uint16 = 1 << 3
	hasStockSymbol uint16 = 1 << 4
	hasStockName   uint16 = 1 << 5
	hasCreatedAt   uint16 = 1 << 6
	hasUpdatedAt   uint16 = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.ISnapshotSerializer)
// --------------------------------------------------------------------------

// Serialize writes: version (1 byte), post count (4 bytes), then for each post
// flags (2 bytes), id, title, content and the present optional fields.
// Strings are length-prefixed with 4 bytes, string lists with a 4 byte count.
func (b binarySerializerImpl) Serialize(posts []post.Post) ([]byte, error) {
	// Calculate total size needed
	totalSize := 5
	for i := range posts {
		totalSize += b.sizeBytes(&posts[i])
	}
	result := make([]byte, 0, totalSize)

	result = append(result, binaryVersion)
	result = binary.BigEndian.AppendUint32(result, uint32(len(posts)))

	for i := range posts {
		p := &posts[i]

		// Initialize flags
		var flags uint16
		if p.Excerpt != "" {
			flags |= hasExcerpt
		}
		if p.Tags != nil {
			flags |= hasTags
		}
		if p.Images != nil {
			flags |= hasImages
		}
		if p.Author != "" {
			flags |= hasAuthor
		}
		if p.StockSymbol != "" {
			flags |= hasStockSymbol
		}
		if p.StockName != "" {
			flags |= hasStockName
		}
		if p.CreatedAt != "" {
			flags |= hasCreatedAt
		}
		if p.UpdatedAt != "" {
			flags |= hasUpdatedAt
		}
		result = binary.BigEndian.AppendUint16(result, flags)

		// Required fields
		result = appendString(result, p.ID)
		result = appendString(result, p.Title)
		result = appendString(result, p.Content)

		// Optional fields
		if flags&hasExcerpt != 0 {
			result = appendString(result, p.Excerpt)
		}
		if flags&hasTags != 0 {
			result = appendStrings(result, p.Tags)
		}
		if flags&hasImages != 0 {
			result = appendStrings(result, p.Images)
		}
		if flags&hasAuthor != 0 {
			result = appendString(result, p.Author)
		}
		if flags&hasStockSymbol != 0 {
			result = appendString(result, p.StockSymbol)
		}
		if flags&hasStockName != 0 {
			result = appendString(result, p.StockName)
		}
		if flags&hasCreatedAt != 0 {
			result = appendString(result, p.CreatedAt)
		}
		if flags&hasUpdatedAt != 0 {
			result = appendString(result, p.UpdatedAt)
		}
	}

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte) ([]post.Post, error) {
	// Check minimum size (version + count)
	if len(data) < 5 {
		return nil, fmt.Errorf("data too short for snapshot header")
	}
	if data[0] != binaryVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", data[0])
	}

	r := &reader{data: data, pos: 1}
	count, err := r.readUint32("post count")
	if err != nil {
		return nil, err
	}

	// every post needs at least flags and three length prefixes
	if int(count) > (len(data)-5)/14 {
		return nil, fmt.Errorf("post count %d exceeds data size", count)
	}

	posts := make([]post.Post, 0, count)
	for i := uint32(0); i < count; i++ {
		var p post.Post

		flags, err := r.readUint16("flags")
		if err != nil {
			return nil, err
		}

		if p.ID, err = r.readString("id"); err != nil {
			return nil, err
		}
		if p.Title, err = r.readString("title"); err != nil {
			return nil, err
		}
		if p.Content, err = r.readString("content"); err != nil {
			return nil, err
		}

		if flags&hasExcerpt != 0 {
			if p.Excerpt, err = r.readString("excerpt"); err != nil {
				return nil, err
			}
		}
		if flags&hasTags != 0 {
			if p.Tags, err = r.readStrings("tags"); err != nil {
				return nil, err
			}
		}
		if flags&hasImages != 0 {
			if p.Images, err = r.readStrings("images"); err != nil {
				return nil, err
			}
		}
		if flags&hasAuthor != 0 {
			if p.Author, err = r.readString("author"); err != nil {
				return nil, err
			}
		}
		if flags&hasStockSymbol != 0 {
			if p.StockSymbol, err = r.readString("stockSymbol"); err != nil {
				return nil, err
			}
		}
		if flags&hasStockName != 0 {
			if p.StockName, err = r.readString("stockName"); err != nil {
				return nil, err
			}
		}
		if flags&hasCreatedAt != 0 {
			if p.CreatedAt, err = r.readString("createdAt"); err != nil {
				return nil, err
			}
		}
		if flags&hasUpdatedAt != 0 {
			if p.UpdatedAt, err = r.readString("updatedAt"); err != nil {
				return nil, err
			}
		}

		posts = append(posts, p)
	}

	if r.pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after snapshot", len(data)-r.pos)
	}
	return posts, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the upper bound of the serialized size of a post
func (b binarySerializerImpl) sizeBytes(p *post.Post) int {
	size := 2 // flags
	for _, s := range []string{p.ID, p.Title, p.Content, p.Excerpt, p.Author, p.StockSymbol, p.StockName, p.CreatedAt, p.UpdatedAt} {
		size += 4 + len(s)
	}
	for _, list := range [][]string{p.Tags, p.Images} {
		size += 4
		for _, s := range list {
			size += 4 + len(s)
		}
	}
	return size
}

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendStrings(b []byte, list []string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(list)))
	for _, s := range list {
		b = appendString(b, s)
	}
	return b
}

// reader reads length-prefixed fields with bounds checks
type reader struct {
	data []byte
	pos  int
}

func (r *reader) readUint16(field string) (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint16(r.data[r.pos : r.pos+2])
	r.pos += 2
	return v, nil
}

func (r *reader) readUint32(field string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s length", field)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) readString(field string) (string, error) {
	n, err := r.readUint32(field)
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", fmt.Errorf("data too short for %s data", field)
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) readStrings(field string) ([]string, error) {
	n, err := r.readUint32(field)
	if err != nil {
		return nil, err
	}
	if int(n) > (len(r.data)-r.pos)/4 {
		return nil, fmt.Errorf("%s count %d exceeds data size", field, n)
	}
	list := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.readString(field)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}
