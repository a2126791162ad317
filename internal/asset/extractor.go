package asset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/chatarchive/internal/conversation"
)

// fencePattern matches a fenced code block with an optional language tag on
// the opening fence.
var fencePattern = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\\n(.*?)```")

// Extractor scans a conversation's linearized messages for canvas content
// and fenced code blocks.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns every Asset found in conv, ordered by message then by
// discovery order within the message (canvas before fenced blocks).
func (e *Extractor) Extract(conv conversation.Conversation) []Asset {
	var assets []Asset

	for _, lm := range conv.Messages {
		ordinal := 0
		content := lm.Message.Content

		if content.ContentType == "code" {
			ordinal++
			lang := content.Language
			if lang == "" && lm.Message.Metadata != nil {
				lang = lm.Message.Metadata.Language
			}
			if lang == "" {
				lang = DefaultLanguage
			}
			assets = append(assets, Asset{
				NodeID:   lm.NodeID,
				Ordinal:  ordinal,
				Kind:     KindCanvas,
				Language: lang,
				Name:     fmt.Sprintf("canvas_%s_%d.%s", lm.NodeID, ordinal, lang),
				Payload:  []byte(content.Text),
			})
		}

		for _, block := range scanFences(content) {
			ordinal++
			lang := block.lang
			if lang == "" {
				lang = DefaultLanguage
			}
			assets = append(assets, Asset{
				NodeID:   lm.NodeID,
				Ordinal:  ordinal,
				Kind:     KindCodeBlock,
				Language: lang,
				Name:     fmt.Sprintf("code_block_%s_%d.%s", lm.NodeID, ordinal, lang),
				Payload:  []byte(block.body),
			})
		}
	}

	return assets
}

type fence struct {
	lang string
	body string
}

// scanFences collects fenced code blocks from every text-bearing part of a
// message's content, in part order.
func scanFences(content conversation.Content) []fence {
	var out []fence

	texts := []string{content.Text}
	for _, part := range content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	for _, text := range texts {
		if !strings.Contains(text, "```") {
			continue
		}
		for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
			out = append(out, fence{lang: m[1], body: m[2]})
		}
	}

	return out
}
