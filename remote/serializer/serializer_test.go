package serializer

import (
	"github.com/freerahn/stockblog/lib/post"
	"github.com/google/go-cmp/cmp"
	"strings"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() ISnapshotSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testCollections creates a set of test collections with different fields filled
func testCollections() map[string][]post.Post {
	return map[string][]post.Post{
		"Empty": {},

		"Minimal": {
			{ID: "1", Title: "t", Content: "c"},
		},

		"Complete": {
			{
				ID:          "1709285400000",
				Title:       "산일전기 3분기 실적",
				Content:     "<p>변압기 수주가 늘었다</p>",
				Excerpt:     "변압기 수주",
				Tags:        []string{"kospi", "transformer"},
				Images:      []string{"https://example.com/a.png"},
				Author:      "investa",
				StockSymbol: "062040",
				StockName:   "산일전기",
				CreatedAt:   "2024-03-01T09:30:00.000Z",
				UpdatedAt:   "2024-03-02T10:00:00.000Z",
			},
			{
				ID:        "2",
				Title:     "no stock",
				Content:   "body",
				Tags:      []string{},
				Images:    []string{},
				CreatedAt: "2024-03-03T00:00:00.000Z",
				UpdatedAt: "2024-03-03T00:00:00.000Z",
			},
		},
	}
}

// TestSerializerRoundTrip tests that collections can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for collName, posts := range testCollections() {
				data, err := serializer.Serialize(posts)
				if err != nil {
					t.Errorf("Failed to serialize %s: %v", collName, err)
					continue
				}

				result, err := serializer.Deserialize(data)
				if err != nil {
					t.Errorf("Failed to deserialize %s: %v", collName, err)
					continue
				}

				if diff := cmp.Diff(posts, result); diff != "" {
					t.Errorf("Round trip of %s mismatch (-want +got):\n%s", collName, diff)
				}
			}
		})
	}
}

func TestKeepsNilAndEmptyApart(t *testing.T) {
	posts := []post.Post{
		{ID: "1", Tags: nil, Images: []string{}},
		{ID: "2", Tags: []string{}, Images: nil},
		{ID: "3", Tags: []string{"a"}, Images: []string{}},
	}
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			data, err := s.Serialize(posts)
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}
			result, err := s.Deserialize(data)
			if err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if len(result) != 3 {
				t.Fatalf("Expected 3 posts, got %d", len(result))
			}
			if result[0].Tags != nil || result[0].Images == nil || len(result[0].Images) != 0 {
				t.Errorf("Post 1: expected nil tags and empty images, got %#v / %#v", result[0].Tags, result[0].Images)
			}
			if result[1].Tags == nil || result[1].Images != nil {
				t.Errorf("Post 2: expected empty tags and nil images, got %#v / %#v", result[1].Tags, result[1].Images)
			}
			if diff := cmp.Diff(posts, result); diff != "" {
				t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONIsPrettyArray(t *testing.T) {
	data, err := NewJSONSerializer().Serialize(nil)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("Expected empty array, got %s", data)
	}

	data, _ = NewJSONSerializer().Serialize([]post.Post{{ID: "1", Title: "t", Content: "c"}})
	if !strings.HasPrefix(string(data), "[\n  {\n    \"id\": \"1\",") {
		t.Errorf("Expected two-space indentation, got:\n%s", data)
	}
	if strings.Contains(string(data), "stockSymbol") {
		t.Errorf("Empty stock fields should be omitted:\n%s", data)
	}
}

func TestJSONRejectsNonArrays(t *testing.T) {
	tests := []string{
		"",
		"null",
		`{"id":"1"}`,
		`"posts"`,
		`[1, 2]`,
		`[{"id":"1"}`,
	}
	for _, in := range tests {
		if _, err := NewJSONSerializer().Deserialize([]byte(in)); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}

	posts, err := NewJSONSerializer().Deserialize([]byte(" \n[]\n"))
	if err != nil || len(posts) != 0 {
		t.Errorf("Expected empty collection, got %v, %v", posts, err)
	}
}

func TestJSONIgnoresUnknownFields(t *testing.T) {
	in := `[{"id":"1","title":"t","content":"c","views":12,"createdAt":"2024-01-01T00:00:00Z"}]`
	posts, err := NewJSONSerializer().Deserialize([]byte(in))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if posts[0].ID != "1" || posts[0].UpdatedAt != "" {
		t.Errorf("Unexpected post %#v", posts[0])
	}
}

func TestBinaryRejectsTruncatedData(t *testing.T) {
	s := NewBinarySerializer()
	data, _ := s.Serialize(testCollections()["Complete"])
	for _, n := range []int{0, 3, 5, 10, len(data) - 1} {
		if _, err := s.Deserialize(data[:n]); err == nil {
			t.Errorf("Expected error for data truncated to %d bytes", n)
		}
	}
	if _, err := s.Deserialize(append(data, 0)); err == nil {
		t.Errorf("Expected error for trailing bytes")
	}
}

func TestNew(t *testing.T) {
	for _, name := range []Name{JSON, GOB, Binary, ""} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := New("xml"); err == nil {
		t.Errorf("Expected error for unknown serializer")
	}
}
