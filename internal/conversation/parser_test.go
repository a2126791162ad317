package conversation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const singleConversationJSON = `{
  "conversation_id": "11111111-1111-1111-1111-111111111111",
  "title": "Fixing a bug",
  "create_time": 1700000000.123,
  "current_node": "node-2",
  "mapping": {
    "node-1": {"id": "node-1", "message": {"id": "node-1", "author": {"role": "user"}, "create_time": 1700000000.0, "content": {"content_type": "text", "parts": ["hi"]}}, "children": ["node-2"]},
    "node-2": {"id": "node-2", "message": {"id": "node-2", "author": {"role": "assistant"}, "create_time": 1700000001.0, "content": {"content_type": "text", "parts": ["hello"]}}, "parent": "node-1"}
  }
}`

const arrayConversationsJSON = `[
  {
    "conversation_id": "22222222-2222-2222-2222-222222222222",
    "title": "Array record",
    "create_time": 1700000100.0,
    "mapping": {
      "root": {"id": "root", "message": null, "children": ["m1"]},
      "m1": {"id": "m1", "message": {"id": "m1", "author": {"role": "user"}, "create_time": 1700000100.0, "content": {"content_type": "text", "parts": ["hey"]}}, "parent": "root"}
    }
  }
]`

func TestParser_ParseFile_SingleObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conversation.json")
	require.NoError(t, os.WriteFile(path, []byte(singleConversationJSON), 0644))

	p := NewParser()
	convs, err := p.parseFile(path)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", convs[0].conversationID())
	assert.Equal(t, 2, convs[0].messageCount())
}

func TestParser_ParseFile_TopLevelArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conversations.json")
	require.NoError(t, os.WriteFile(path, []byte(arrayConversationsJSON), 0644))

	p := NewParser()
	convs, err := p.parseFile(path)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", convs[0].conversationID())
	assert.Equal(t, 1, convs[0].messageCount())
}

func TestParser_ParseFile_NonConversationJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sidecar.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"file_id": "abc", "size": 123}`), 0644))

	p := NewParser()
	convs, err := p.parseFile(path)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestParser_ParseFile_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mapping": {`), 0644))

	p := NewParser()
	_, err := p.parseFile(path)
	assert.Error(t, err)
}

func TestParser_ParseAll_WalksNestedDirs(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "extracted", "convo_dir")
	require.NoError(t, os.MkdirAll(nested, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(root, "conversations.json"), []byte(arrayConversationsJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "conversation.json"), []byte(singleConversationJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "not-json.txt"), []byte("ignore me"), 0644))

	p := NewParser()
	records, errs := p.ParseAll(root)
	assert.Empty(t, errs)
	assert.Len(t, records, 2)
}
