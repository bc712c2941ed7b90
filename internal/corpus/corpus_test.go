package corpus

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID_Int(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      ChunkID
		want    int32
		wantErr bool
	}{
		{"plain", "7", 7, false},
		{"zero", "0", 0, false},
		{"composite", "12345_3", 3, false},
		{"composite post id beyond int32", "9999999999_4", 4, false},
		{"padded", " 4 ", 4, false},
		{"empty", "", 0, true},
		{"word", "intro", 0, true},
		{"composite non numeric post", "abc_1", 0, true},
		{"trailing underscore", "12_", 0, true},
		{"overflow", "99999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.id.Int()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrNonNumericChunkID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkID_JSONShape(t *testing.T) {
	t.Parallel()

	course := Chunk{Source: "w1.md", ChunkID: IntChunkID(2), Text: "x"}
	b, err := json.Marshal(course)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"chunk_id":2`)

	forum := Chunk{Source: DiscourseSource, PostID: 9, ChunkID: CompositeChunkID(9, 1), Text: "y"}
	b, err = json.Marshal(forum)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"chunk_id":"9_1"`)
}

func TestChunkID_UnmarshalForms(t *testing.T) {
	t.Parallel()

	var got []Chunk
	raw := `[{"source":"a.md","chunk_id":3,"text":"a"},
	         {"source":"discourse","chunk_id":"10_0","text":"b"},
	         {"source":"b.md","chunk_id":4.0,"text":"c"},
	         {"source":"c.md","text":"d"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Len(t, got, 4)
	assert.Equal(t, ChunkID("3"), got[0].ChunkID)
	assert.Equal(t, ChunkID("10_0"), got[1].ChunkID)
	assert.Equal(t, ChunkID("4"), got[2].ChunkID)
	assert.Equal(t, ChunkID(""), got[3].ChunkID)

	var bad Chunk
	assert.Error(t, json.Unmarshal([]byte(`{"chunk_id":1.5}`), &bad))
}

func TestChunk_Key(t *testing.T) {
	t.Parallel()

	c := Chunk{Source: "w1.md", ChunkID: IntChunkID(0)}
	assert.Equal(t, "w1.md_0", c.Key())
}

func TestEmbeddedChunk_FlattensChunk(t *testing.T) {
	t.Parallel()

	ec := EmbeddedChunk{
		Chunk:     Chunk{Source: "a.md", ChunkID: IntChunkID(1), Text: "hello"},
		Embedding: []float32{0.1, 0.2},
	}
	b, err := json.Marshal(ec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "a.md", m["source"])
	assert.Equal(t, "hello", m["text"])
	assert.Len(t, m["embedding"], 2)
}

func TestWriteReadJSON_RoundTripsArtifact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", AllChunksFile)
	in := []Chunk{
		{Source: "a.md", ChunkID: IntChunkID(0), Text: "one"},
		{Source: DiscourseSource, PostID: 5, ChunkID: CompositeChunkID(5, 0), Text: "two",
			Metadata: map[string]any{"url": "https://example.com/t/5"}},
	}
	require.NoError(t, WriteJSON(path, in))

	out, err := ReadJSON[Chunk](path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[1].ChunkID, out[1].ChunkID)
	assert.Equal(t, "https://example.com/t/5", out[1].Metadata["url"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestReadJSON_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadJSON[Chunk](filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
