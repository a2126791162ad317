package conversation

import (
	"encoding/json"
	"time"
)

// Author identifies who or what produced a message.
type Author struct {
	Role     string          `json:"role"`
	Name     string          `json:"name,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// ContentPart is one element of a message's content.parts array. ChatGPT
// exports mix plain strings and structured objects (images, code) in the
// same array, so Text and the structured fields are populated selectively
// depending on what UnmarshalJSON found.
type ContentPart struct {
	Text         string `json:"-"`
	Type         string `json:"content_type,omitempty"`
	AssetPointer string `json:"asset_pointer,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Metadata     struct {
		Dalle struct {
			GenID string `json:"gen_id,omitempty"`
		} `json:"dalle,omitempty"`
	} `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts both a bare string part and a structured object
// part, matching the heterogeneous `content.parts` array OpenAI emits.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Text = s
		p.Type = "text"
		return nil
	}

	type alias ContentPart
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*p = ContentPart(a)
	if p.Type == "" {
		p.Type = "text"
	}
	return nil
}

// Content holds a message's payload: either a free-form parts array (the
// common case) or a canvas-style document body (content_type == "code").
type Content struct {
	ContentType string        `json:"content_type,omitempty"`
	Parts       []ContentPart `json:"parts,omitempty"`
	Text        string        `json:"text,omitempty"`
	Language    string        `json:"language,omitempty"`
}

// Attachment is one entry in metadata.attachments on a message.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// MessageMetadata carries the subset of message.metadata this pipeline
// inspects. Other metadata fields are dropped when decoding, and Extra is
// not filled by decoding.
type MessageMetadata struct {
	Attachments []Attachment    `json:"attachments,omitempty"`
	Language    string          `json:"language,omitempty"`
	Extra       json.RawMessage `json:"-"`
}

// Message is one node's payload inside the mapping tree.
type Message struct {
	ID         string           `json:"id"`
	Author     Author           `json:"author"`
	CreateTime *float64         `json:"create_time"`
	UpdateTime *float64         `json:"update_time,omitempty"`
	Content    Content          `json:"content"`
	Metadata   *MessageMetadata `json:"metadata,omitempty"`
}

// CreatedAt converts the epoch-seconds create_time into a time.Time. A nil
// or non-positive create_time (present on system nodes and the synthetic
// mapping root) reports the zero time.
func (m *Message) CreatedAt() time.Time {
	if m == nil || m.CreateTime == nil || *m.CreateTime <= 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(*m.CreateTime*float64(time.Second)))
}

// MappingNode is one node of the conversation's branching tree, keyed by
// node-id in the top-level mapping object. Message is nil for the synthetic
// root node that precedes the first real turn.
type MappingNode struct {
	ID       string   `json:"id"`
	Message  *Message `json:"message"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

// RawConversation is the on-disk shape of one OpenAI conversation record,
// as found either standalone or as an element of a top-level array.
type RawConversation struct {
	ID            string                 `json:"conversation_id,omitempty"`
	ID2           string                 `json:"id,omitempty"`
	Title         string                 `json:"title,omitempty"`
	CreateTime    *float64               `json:"create_time"`
	UpdateTime    *float64               `json:"update_time,omitempty"`
	CurrentNode   string                 `json:"current_node,omitempty"`
	Mapping       map[string]MappingNode `json:"mapping"`
	SourcePath    string                 `json:"-"`
}

// conversationID returns whichever identifier field was populated; OpenAI
// has used both `conversation_id` and bare `id` across export generations.
func (r *RawConversation) conversationID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.ID2
}

// messageCount returns the number of mapping nodes carrying a non-nil
// message, used to pick the canonical record among conversation-id
// duplicates.
func (r *RawConversation) messageCount() int {
	n := 0
	for _, node := range r.Mapping {
		if node.Message != nil {
			n++
		}
	}
	return n
}

// LinearMessage is one entry in a conversation's linearized view: the
// message plus the node-id it came from (assets and citations are keyed
// back to the owning node-id, not a synthetic message index).
type LinearMessage struct {
	NodeID  string
	Message Message
}

// Conversation is the normalized record produced by the Loader and consumed
// by every downstream component.
type Conversation struct {
	ID         string
	Title      string
	CreateTime time.Time
	UpdateTime time.Time

	// Mapping is the original branching map as decoded. The Output
	// Writer's conversation.json does not include it; it holds only the
	// linearized messages.
	Mapping map[string]MappingNode

	// Messages is the linearized, cycle-safe flattening of Mapping,
	// ordered root-to-current-node (or by child creation time when no
	// current_node chain is present).
	Messages []LinearMessage
}

// LoadResult is the output of a Loader.Load call.
type LoadResult struct {
	Conversations []Conversation
	Dropped       []DroppedRecord
}

// DroppedRecord explains why a discovered conversation record did not
// survive to the output, for verbose reporting.
type DroppedRecord struct {
	ID     string
	Path   string
	Reason string
}
