package conversation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/chatarchive/internal/logging"
)

func TestLoader_Load_DropsZeroMessageAndEpochRecords(t *testing.T) {
	root := t.TempDir()

	zeroMessages := `{"conversation_id": "a", "title": "empty", "create_time": 1700000000.0, "mapping": {"root": {"id": "root", "message": null}}}`
	epochTime := `{"conversation_id": "b", "title": "epoch", "create_time": 0, "mapping": {"root": {"id": "root", "message": null, "children": ["m1"]}, "m1": {"id": "m1", "message": {"id": "m1", "author": {"role": "user"}, "create_time": 0, "content": {"parts": ["x"]}}, "parent": "root"}}}`
	nullTime := `{"conversation_id": "c", "title": "null time", "mapping": {"root": {"id": "root", "message": null, "children": ["m1"]}, "m1": {"id": "m1", "message": {"id": "m1", "author": {"role": "user"}, "create_time": 1700000000.0, "content": {"parts": ["x"]}}, "parent": "root"}}}`

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.json"), []byte(zeroMessages), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.json"), []byte(epochTime), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.json"), []byte(nullTime), 0644))

	loader := NewLoader(logging.NewNop())
	result, err := loader.Load(context.Background(), root)
	require.NoError(t, err)

	assert.Empty(t, result.Conversations)
	assert.Len(t, result.Dropped, 3)
}

func TestLoader_Load_DedupesByConversationIDKeepingLargest(t *testing.T) {
	root := t.TempDir()

	small := `{"conversation_id": "dup", "title": "small", "create_time": 1700000000.0, "mapping": {
		"root": {"id": "root", "message": null, "children": ["m1"]},
		"m1": {"id": "m1", "message": {"id": "m1", "author": {"role": "user"}, "create_time": 1700000000.0, "content": {"parts": ["one"]}}, "parent": "root"}
	}}`
	large := `{"conversation_id": "dup", "title": "large", "create_time": 1700000000.0, "mapping": {
		"root": {"id": "root", "message": null, "children": ["m1"]},
		"m1": {"id": "m1", "message": {"id": "m1", "author": {"role": "user"}, "create_time": 1700000000.0, "content": {"parts": ["one"]}}, "parent": "root", "children": ["m2"]},
		"m2": {"id": "m2", "message": {"id": "m2", "author": {"role": "assistant"}, "create_time": 1700000001.0, "content": {"parts": ["two"]}}, "parent": "m1"}
	}}`

	require.NoError(t, os.WriteFile(filepath.Join(root, "small.json"), []byte(small), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "large.json"), []byte(large), 0644))

	loader := NewLoader(logging.NewNop())
	result, err := loader.Load(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, result.Conversations, 1)
	assert.Equal(t, "large", result.Conversations[0].Title)
	assert.Len(t, result.Conversations[0].Messages, 2)
}

func TestLoader_Load_LinearizesViaCurrentNode(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "conv.json"), []byte(singleConversationJSON), 0644))

	loader := NewLoader(logging.NewNop())
	result, err := loader.Load(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, result.Conversations, 1)

	msgs := result.Conversations[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "node-1", msgs[0].NodeID)
	assert.Equal(t, "node-2", msgs[1].NodeID)
}

func TestLinearizeFromRoot_OrdersByChildCreateTime(t *testing.T) {
	raw := RawConversation{
		Mapping: map[string]MappingNode{
			"root": {ID: "root", Children: []string{"b", "a"}},
			"a": {ID: "a", Parent: "root", Message: &Message{
				ID: "a", CreateTime: floatPtr(1700000001.0),
			}},
			"b": {ID: "b", Parent: "root", Message: &Message{
				ID: "b", CreateTime: floatPtr(1700000000.0),
			}},
		},
	}

	msgs := linearizeFromRoot(raw)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[0].NodeID)
	assert.Equal(t, "a", msgs[1].NodeID)
}

func TestLinearizeFromRoot_CycleSafe(t *testing.T) {
	raw := RawConversation{
		Mapping: map[string]MappingNode{
			"root": {ID: "root", Children: []string{"a"}},
			"a":    {ID: "a", Parent: "root", Children: []string{"root"}, Message: &Message{ID: "a", CreateTime: floatPtr(1700000000.0)}},
		},
	}

	// Must terminate rather than recurse forever on the a -> root -> a cycle.
	msgs := linearizeFromRoot(raw)
	assert.Len(t, msgs, 1)
}

func floatPtr(f float64) *float64 { return &f }
