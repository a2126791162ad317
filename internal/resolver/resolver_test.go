package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/chatarchive/internal/citation"
	"github.com/fyrsmithlabs/chatarchive/internal/logging"
	"github.com/fyrsmithlabs/chatarchive/internal/media"
)

// fileSpec describes one file to materialize under a temp extraction root.
type fileSpec struct {
	name    string
	content string
}

// indexWithFiles writes each spec under a fresh temp dir and runs the real
// media Indexer over it, so resolver tests exercise the production Index
// rather than a hand-built stand-in.
func indexWithFiles(t *testing.T, specs ...fileSpec) *media.Index {
	t.Helper()
	root := t.TempDir()
	for _, s := range specs {
		path := filepath.Join(root, s.name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(s.content), 0644))
	}

	idx := media.NewIndexer([]string{"png", "jpg"}, 2, logging.NewNop())
	index, err := idx.Build(context.Background(), root, "")
	require.NoError(t, err)
	return index
}

func TestResolver_HashMatch(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "file_" + hex32 + "-11111111-1111-1111-1111-111111111111.png", content: "x"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindSedimentPointer, Payload: hex32}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	require.Len(t, results["c1"].ResolvedMedia, 1)
	assert.Empty(t, results["c1"].Unresolved)
	assert.Equal(t, 1, stats.PerStrategy["hash_match"])
}

func TestResolver_FileIDMatch(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "file-abc123_photo.png", content: "x"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindFileIDAttachment, Payload: "abc123"}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	require.Len(t, results["c1"].ResolvedMedia, 1)
	assert.Equal(t, 1, stats.PerStrategy["file_id_match"])
}

func TestResolver_NameSizeMatch(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "photo.png", content: "hello"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindInlineName, Name: "photo.png", Size: int64(len("hello"))}
	r := NewResolver(nil, logging.NewNop())
	results, _ := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	require.Len(t, results["c1"].ResolvedMedia, 1)
}

func TestResolver_ConversationDirectoryMatch_GuardSatisfied(t *testing.T) {
	convID := "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	idx := indexWithFiles(t, fileSpec{name: convID + "/media/unrelated.png", content: "x"})

	c := citation.Citation{ConversationID: convID, Kind: citation.KindFileServicePointer, Payload: "no-such-id"}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{convID: {c}})

	require.Len(t, results[convID].ResolvedMedia, 1)
	assert.Empty(t, results[convID].Unresolved)
	assert.Equal(t, 1, stats.PerStrategy["conversation_directory_match"])
}

func TestResolver_ConversationDirectoryMatch_GuardNotSatisfied(t *testing.T) {
	convID := "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	idx := indexWithFiles(t, fileSpec{name: convID + "/media/unrelated.png", content: "x"})

	c := citation.Citation{ConversationID: convID, Kind: citation.KindInlineUUID, Payload: "no-such-token"}
	r := NewResolver(nil, logging.NewNop())
	results, _ := r.Resolve(context.Background(), idx, map[string][]citation.Citation{convID: {c}})

	assert.Empty(t, results[convID].ResolvedMedia)
	assert.Len(t, results[convID].Unresolved, 1)
}

func TestResolver_SizeGenIDMatch(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "generated.png", content: "hello-world"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindFileServicePointer, Size: int64(len("hello-world")), GenID: "gen-1"}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	require.Len(t, results["c1"].ResolvedMedia, 1)
	assert.Equal(t, 1, stats.PerStrategy["size_gen_id_match"])
}

func TestResolver_SizeGenIDMatch_BreaksGenuineCollisionAcrossCitations(t *testing.T) {
	idx := indexWithFiles(t,
		fileSpec{name: "generated_a.png", content: "same-size-a"},
		fileSpec{name: "generated_b.png", content: "same-size-b"},
	)

	size := int64(len("same-size-a"))
	c1 := citation.Citation{ConversationID: "c1", Kind: citation.KindFileServicePointer, Size: size, GenID: "gen-1"}
	c2 := citation.Citation{ConversationID: "c1", Kind: citation.KindFileServicePointer, Size: size, GenID: "gen-2"}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c1, c2}})

	require.Empty(t, results["c1"].Unresolved, "two distinct gen-ids sharing a size must both resolve, not alias or fall through")
	require.Len(t, results["c1"].ResolvedMedia, 2)
	assert.Equal(t, 2, stats.PerStrategy["size_gen_id_match"])

	paths := make(map[string]bool)
	for _, res := range results["c1"].Resolutions {
		require.True(t, res.Resolved)
		assert.False(t, paths[res.Path], "gen-1 and gen-2 must bind to distinct files, not alias to the same one")
		paths[res.Path] = true
	}
}

func TestResolver_SizeOnlyMatch_DeclinesOnAmbiguity(t *testing.T) {
	idx := indexWithFiles(t,
		fileSpec{name: "a.png", content: "same-size"},
		fileSpec{name: "b.png", content: "same-size"},
	)

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindInlineUUID, Size: int64(len("same-size"))}
	r := NewResolver(nil, logging.NewNop())
	results, _ := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	assert.Empty(t, results["c1"].ResolvedMedia)
	assert.Len(t, results["c1"].Unresolved, 1)
}

func TestResolver_SizeOnlyMatch_UniqueSizeBinds(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "only.png", content: "unique-size-xyz"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindInlineUUID, Size: int64(len("unique-size-xyz"))}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	require.Len(t, results["c1"].ResolvedMedia, 1)
	assert.Equal(t, 1, stats.PerStrategy["size_only_match"])
}

func TestResolver_InlineTextMatch(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "sunset_beach_photo.png", content: "x"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindInlineName, Payload: "sunset_beach"}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	require.Len(t, results["c1"].ResolvedMedia, 1)
	assert.Equal(t, 1, stats.PerStrategy["inline_text_match"])
}

func TestResolver_UnresolvedWhenNoStrategyMatches(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "unrelated.png", content: "x"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindInlineUUID, Payload: "nonexistent-token"}
	r := NewResolver(nil, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	assert.Empty(t, results["c1"].ResolvedMedia)
	require.Len(t, results["c1"].Unresolved, 1)
	assert.Equal(t, 1, stats.TotalUnresolved)
}

func TestResolver_CustomStrategyOrderOverridesDefault(t *testing.T) {
	idx := indexWithFiles(t, fileSpec{name: "only.png", content: "unique-size-abc"})

	c := citation.Citation{ConversationID: "c1", Kind: citation.KindInlineUUID, Size: int64(len("unique-size-abc"))}
	r := NewResolver([]string{"size_only_match"}, logging.NewNop())
	results, stats := r.Resolve(context.Background(), idx, map[string][]citation.Citation{"c1": {c}})

	require.Len(t, results["c1"].ResolvedMedia, 1)
	assert.Equal(t, 1, stats.PerStrategy["size_only_match"])
}

const hex32 = "0123456789abcdef0123456789abcdef"
