package output

import (
	"github.com/fyrsmithlabs/chatarchive/internal/citation"
	"github.com/fyrsmithlabs/chatarchive/internal/resolver"
)

// ConversationDescriptor is one row of the master index.
type ConversationDescriptor struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	FolderName     string `json:"folder_name"`
	MessageCount   int    `json:"message_count"`
	HasMedia       bool   `json:"has_media"`
	HasAssets      bool   `json:"has_assets"`
}

// ManifestEntry maps one citation's original token back to the on-disk
// media filename it was bound to.
type ManifestEntry struct {
	Kind     string `json:"kind"`
	Payload  string `json:"payload"`
	OnDisk   string `json:"on_disk_name"`
	Strategy string `json:"strategy"`
}

// NormalizedConversation is the shape written as conversation.json.
type NormalizedConversation struct {
	ConversationID string            `json:"conversation_id"`
	Title          string            `json:"title"`
	CreateTime     string            `json:"create_time"`
	UpdateTime     string            `json:"update_time"`
	Messages       []NormalizedMsg   `json:"messages"`
	ResolvedMedia  []string          `json:"resolved_media"`
	Unresolved     []UnresolvedEntry `json:"unresolved_citations"`
}

// NormalizedMsg is the flattened, written form of one linearized message.
type NormalizedMsg struct {
	NodeID string `json:"node_id"`
	Role   string `json:"role"`
	Text   string `json:"text"`
}

// UnresolvedEntry is the written form of a citation no strategy could bind.
type UnresolvedEntry struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// MasterIndex is the top-level index.json document.
type MasterIndex struct {
	TotalConversations int                      `json:"total_conversations"`
	Conversations      []ConversationDescriptor `json:"conversations"`
	Stats              IndexStats               `json:"resolver_stats"`
}

// IndexStats mirrors resolver.Stats in a JSON-friendly shape.
type IndexStats struct {
	PerStrategy     map[string]int `json:"per_strategy"`
	TotalCitations  int            `json:"total_citations"`
	TotalUnresolved int            `json:"total_unresolved"`
}

// CitationRecord is the on-disk form of one extracted citation, persisted
// alongside each conversation so rematch-media can re-run resolution without
// re-walking the conversation export for attachments and asset pointers.
type CitationRecord struct {
	MessageID string `json:"message_id"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
	Size      int64  `json:"size"`
	GenID     string `json:"gen_id"`
	Name      string `json:"name"`
}

func toCitationRecords(citations []citation.Citation) []CitationRecord {
	records := make([]CitationRecord, len(citations))
	for i, c := range citations {
		records[i] = CitationRecord{
			MessageID: c.MessageID,
			Kind:      string(c.Kind),
			Payload:   c.Payload,
			Size:      c.Size,
			GenID:     c.GenID,
			Name:      c.Name,
		}
	}
	return records
}

// ToCitations converts persisted records back into citation.Citation values
// scoped to convID, as read back by rematch-media.
func ToCitations(convID string, records []CitationRecord) []citation.Citation {
	citations := make([]citation.Citation, len(records))
	for i, r := range records {
		citations[i] = citation.Citation{
			ConversationID: convID,
			MessageID:      r.MessageID,
			Kind:           citation.Kind(r.Kind),
			Payload:        r.Payload,
			Size:           r.Size,
			GenID:          r.GenID,
			Name:           r.Name,
		}
	}
	return citations
}

// IndexStatsFrom converts resolver.Stats into its JSON-friendly shape, for
// WriteIndex and for rematch-media's in-place index.json stats rewrite.
func IndexStatsFrom(s *resolver.Stats) IndexStats {
	if s == nil {
		return IndexStats{PerStrategy: map[string]int{}}
	}
	return IndexStats{
		PerStrategy:     s.PerStrategy,
		TotalCitations:  s.TotalCitations,
		TotalUnresolved: s.TotalUnresolved,
	}
}
