package citation

import (
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/chatarchive/internal/conversation"
)

// inlineFileIDPattern matches bare file-id tokens in free text, e.g.
// "see file-AbC123 for the image".
var inlineFileIDPattern = regexp.MustCompile(`\bfile-[A-Za-z0-9]+\b`)

// uuidPattern matches a canonical 8-4-4-4-12 hex UUID anywhere in text.
var uuidPattern = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

const (
	sedimentPrefix   = "sediment://file_"
	fileServicePrefix = "file-service://file-"
)

// Extractor collects Citations from a normalized Conversation.
type Extractor struct {
	mediaExtensions []string
}

// NewExtractor creates an Extractor. mediaExtensions (without leading dots)
// is used to recognize bare file names in free text.
func NewExtractor(mediaExtensions []string) *Extractor {
	return &Extractor{mediaExtensions: mediaExtensions}
}

// Extract walks the messages of conv's linearized view (each node at most
// once; when current_node is set that view holds only the active branch, so
// messages on other branches are not scanned) and returns the ordered
// citations found, in the fixed per-message field order spec'd: attachments,
// asset pointers, inline image parts, then free-text scan.
func (e *Extractor) Extract(conv conversation.Conversation) []Citation {
	var out []Citation

	for _, lm := range conv.Messages {
		msg := lm.Message

		if msg.Metadata != nil {
			for _, att := range msg.Metadata.Attachments {
				if att.ID == "" {
					continue
				}
				out = append(out, Citation{
					ConversationID: conv.ID,
					MessageID:      lm.NodeID,
					Kind:           KindFileIDAttachment,
					Payload:        att.ID,
					Name:           att.Name,
					Size:           att.Size,
				})
			}
		}

		for _, part := range msg.Content.Parts {
			if part.AssetPointer != "" {
				out = append(out, e.extractAssetPointer(conv.ID, lm.NodeID, part)...)
				continue
			}
			if part.Type == "image" && part.ImageURL != "" {
				out = append(out, Citation{
					ConversationID: conv.ID,
					MessageID:      lm.NodeID,
					Kind:           KindInlineName,
					Payload:        path.Base(part.ImageURL),
				})
			}
		}

		for _, part := range msg.Content.Parts {
			if part.Type != "text" || part.Text == "" {
				continue
			}
			out = append(out, e.scanFreeText(conv.ID, lm.NodeID, part.Text)...)
		}
	}

	return out
}

func (e *Extractor) extractAssetPointer(convID, msgID string, part conversation.ContentPart) []Citation {
	switch {
	case strings.HasPrefix(part.AssetPointer, sedimentPrefix):
		hash := strings.TrimPrefix(part.AssetPointer, sedimentPrefix)
		return []Citation{{
			ConversationID: convID,
			MessageID:      msgID,
			Kind:           KindSedimentPointer,
			Payload:        hash,
		}}
	case strings.HasPrefix(part.AssetPointer, fileServicePrefix):
		id := strings.TrimPrefix(part.AssetPointer, fileServicePrefix)
		return []Citation{{
			ConversationID: convID,
			MessageID:      msgID,
			Kind:           KindFileServicePointer,
			Payload:        id,
			Size:           part.SizeBytes,
			GenID:          part.Metadata.Dalle.GenID,
		}}
	case part.Metadata.Dalle.GenID != "":
		// DALL-E generated images occasionally carry a dalle gen-id without
		// a recognized asset_pointer scheme; surfaced as its own kind so
		// strategy 4's over-attachment guard can recognize it per spec.
		return []Citation{{
			ConversationID: convID,
			MessageID:      msgID,
			Kind:           KindDalleAsset,
			Payload:        part.AssetPointer,
			Size:           part.SizeBytes,
			GenID:          part.Metadata.Dalle.GenID,
		}}
	default:
		return nil
	}
}

// scanFreeText extracts file-id tokens, canonical UUIDs, and bare media
// file names from one text part, in that order, deduplicating identical
// tokens within that part (the same token in another part of the message
// yields another citation).
func (e *Extractor) scanFreeText(convID, msgID, text string) []Citation {
	var out []Citation
	seen := make(map[string]bool)

	for _, tok := range inlineFileIDPattern.FindAllString(text, -1) {
		id := strings.TrimPrefix(tok, "file-")
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, Citation{ConversationID: convID, MessageID: msgID, Kind: KindInlineFileID, Payload: id})
	}

	for _, tok := range uuidPattern.FindAllString(text, -1) {
		if _, err := uuid.Parse(tok); err != nil || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, Citation{ConversationID: convID, MessageID: msgID, Kind: KindInlineUUID, Payload: tok})
	}

	for _, name := range e.scanMediaNames(text) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Citation{ConversationID: convID, MessageID: msgID, Kind: KindInlineName, Payload: name})
	}

	return out
}

func (e *Extractor) scanMediaNames(text string) []string {
	if len(e.mediaExtensions) == 0 {
		return nil
	}
	pattern := `\b[\w-]+\.(` + strings.Join(e.mediaExtensions, "|") + `)\b`
	re := regexp.MustCompile(`(?i)` + pattern)
	return re.FindAllString(text, -1)
}
