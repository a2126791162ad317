package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/chatarchive/internal/conversation"
)

func textPart(s string) conversation.ContentPart {
	var p conversation.ContentPart
	p.Text = s
	p.Type = "text"
	return p
}

func TestExtractor_Extract_Attachment(t *testing.T) {
	conv := conversation.Conversation{
		ID: "conv-1",
		Messages: []conversation.LinearMessage{
			{NodeID: "n1", Message: conversation.Message{
				Metadata: &conversation.MessageMetadata{
					Attachments: []conversation.Attachment{{ID: "file-abc", Name: "photo.png", Size: 100}},
				},
			}},
		},
	}

	c := NewExtractor(nil).Extract(conv)
	require.Len(t, c, 1)
	assert.Equal(t, KindFileIDAttachment, c[0].Kind)
	assert.Equal(t, "file-abc", c[0].Payload)
	assert.Equal(t, int64(100), c[0].Size)
}

func TestExtractor_Extract_SedimentPointer(t *testing.T) {
	part := conversation.ContentPart{AssetPointer: "sediment://file_deadbeef"}
	conv := conversation.Conversation{
		ID: "conv-1",
		Messages: []conversation.LinearMessage{
			{NodeID: "n1", Message: conversation.Message{Content: conversation.Content{Parts: []conversation.ContentPart{part}}}},
		},
	}

	c := NewExtractor(nil).Extract(conv)
	require.Len(t, c, 1)
	assert.Equal(t, KindSedimentPointer, c[0].Kind)
	assert.Equal(t, "deadbeef", c[0].Payload)
}

func TestExtractor_Extract_FileServicePointer(t *testing.T) {
	part := conversation.ContentPart{AssetPointer: "file-service://file-XYZ123", SizeBytes: 4096}
	part.Metadata.Dalle.GenID = "gen-5"
	conv := conversation.Conversation{
		ID: "conv-1",
		Messages: []conversation.LinearMessage{
			{NodeID: "n1", Message: conversation.Message{Content: conversation.Content{Parts: []conversation.ContentPart{part}}}},
		},
	}

	c := NewExtractor(nil).Extract(conv)
	require.Len(t, c, 1)
	assert.Equal(t, KindFileServicePointer, c[0].Kind)
	assert.Equal(t, "XYZ123", c[0].Payload)
	assert.Equal(t, int64(4096), c[0].Size)
	assert.Equal(t, "gen-5", c[0].GenID)
}

func TestExtractor_Extract_InlineImagePart(t *testing.T) {
	part := conversation.ContentPart{Type: "image", ImageURL: "https://example.com/pics/cat.png"}
	conv := conversation.Conversation{
		ID: "conv-1",
		Messages: []conversation.LinearMessage{
			{NodeID: "n1", Message: conversation.Message{Content: conversation.Content{Parts: []conversation.ContentPart{part}}}},
		},
	}

	c := NewExtractor(nil).Extract(conv)
	require.Len(t, c, 1)
	assert.Equal(t, KindInlineName, c[0].Kind)
	assert.Equal(t, "cat.png", c[0].Payload)
}

func TestExtractor_Extract_FreeTextScan(t *testing.T) {
	conv := conversation.Conversation{
		ID: "conv-1",
		Messages: []conversation.LinearMessage{
			{NodeID: "n1", Message: conversation.Message{Content: conversation.Content{Parts: []conversation.ContentPart{
				textPart("check file-AbC99 and 11111111-2222-3333-4444-555555555555 and diagram.png please"),
			}}}},
		},
	}

	c := NewExtractor([]string{"png"}).Extract(conv)
	require.Len(t, c, 3)
	assert.Equal(t, KindInlineFileID, c[0].Kind)
	assert.Equal(t, "AbC99", c[0].Payload)
	assert.Equal(t, KindInlineUUID, c[1].Kind)
	assert.Equal(t, KindInlineName, c[2].Kind)
	assert.Equal(t, "diagram.png", c[2].Payload)
}

func TestExtractor_Extract_DedupesWithinMessage(t *testing.T) {
	conv := conversation.Conversation{
		ID: "conv-1",
		Messages: []conversation.LinearMessage{
			{NodeID: "n1", Message: conversation.Message{Content: conversation.Content{Parts: []conversation.ContentPart{
				textPart("file-dup and file-dup again"),
			}}}},
		},
	}

	c := NewExtractor(nil).Extract(conv)
	require.Len(t, c, 1)
}
