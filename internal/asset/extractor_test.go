package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/chatarchive/internal/conversation"
)

func msg(nodeID string, content conversation.Content) conversation.LinearMessage {
	return conversation.LinearMessage{
		NodeID: nodeID,
		Message: conversation.Message{
			ID:      nodeID,
			Content: content,
		},
	}
}

func TestExtractor_CanvasAsset(t *testing.T) {
	conv := conversation.Conversation{
		Messages: []conversation.LinearMessage{
			msg("n1", conversation.Content{ContentType: "code", Language: "python", Text: "print('hi')"}),
		},
	}

	assets := NewExtractor().Extract(conv)
	require.Len(t, assets, 1)
	assert.Equal(t, KindCanvas, assets[0].Kind)
	assert.Equal(t, "python", assets[0].Language)
	assert.Equal(t, "canvas_n1_1.python", assets[0].Name)
	assert.Equal(t, "print('hi')", string(assets[0].Payload))
}

func TestExtractor_CanvasAsset_DefaultsLanguage(t *testing.T) {
	conv := conversation.Conversation{
		Messages: []conversation.LinearMessage{
			msg("n1", conversation.Content{ContentType: "code", Text: "echo hi"}),
		},
	}

	assets := NewExtractor().Extract(conv)
	require.Len(t, assets, 1)
	assert.Equal(t, DefaultLanguage, assets[0].Language)
}

func TestExtractor_FencedCodeBlock(t *testing.T) {
	conv := conversation.Conversation{
		Messages: []conversation.LinearMessage{
			msg("n2", conversation.Content{
				ContentType: "text",
				Text:        "here is code:\n```go\nfmt.Println(\"hi\")\n```\nthat's it",
			}),
		},
	}

	assets := NewExtractor().Extract(conv)
	require.Len(t, assets, 1)
	assert.Equal(t, KindCodeBlock, assets[0].Kind)
	assert.Equal(t, "go", assets[0].Language)
	assert.Equal(t, "code_block_n2_1.go", assets[0].Name)
	assert.Equal(t, "fmt.Println(\"hi\")\n", string(assets[0].Payload))
}

func TestExtractor_FencedCodeBlock_DefaultsLanguage(t *testing.T) {
	conv := conversation.Conversation{
		Messages: []conversation.LinearMessage{
			msg("n3", conversation.Content{Text: "```\nplain block\n```"}),
		},
	}

	assets := NewExtractor().Extract(conv)
	require.Len(t, assets, 1)
	assert.Equal(t, DefaultLanguage, assets[0].Language)
}

func TestExtractor_MultipleFencesOrderedByOrdinal(t *testing.T) {
	conv := conversation.Conversation{
		Messages: []conversation.LinearMessage{
			msg("n4", conversation.Content{Text: "```go\nfirst\n```\nsome text\n```py\nsecond\n```"}),
		},
	}

	assets := NewExtractor().Extract(conv)
	require.Len(t, assets, 2)
	assert.Equal(t, 1, assets[0].Ordinal)
	assert.Equal(t, "go", assets[0].Language)
	assert.Equal(t, 2, assets[1].Ordinal)
	assert.Equal(t, "py", assets[1].Language)
}

func TestExtractor_NoAssetsInPlainMessage(t *testing.T) {
	conv := conversation.Conversation{
		Messages: []conversation.LinearMessage{
			msg("n5", conversation.Content{ContentType: "text", Text: "just chatting, no code here"}),
		},
	}

	assets := NewExtractor().Extract(conv)
	assert.Empty(t, assets)
}

func TestExtractor_CanvasAndFenceShareOrdinalSequence(t *testing.T) {
	conv := conversation.Conversation{
		Messages: []conversation.LinearMessage{
			msg("n6", conversation.Content{ContentType: "code", Language: "js", Text: "```md\nnested fence\n```"}),
		},
	}

	assets := NewExtractor().Extract(conv)
	require.Len(t, assets, 2)
	assert.Equal(t, KindCanvas, assets[0].Kind)
	assert.Equal(t, 1, assets[0].Ordinal)
	assert.Equal(t, KindCodeBlock, assets[1].Kind)
	assert.Equal(t, 2, assets[1].Ordinal)
}
