package conversation

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// discoveredRecord pairs a raw conversation with the file it came from, for
// error reporting and the dropped-record log.
type discoveredRecord struct {
	raw  RawConversation
	path string
}

// Parser locates and decodes ChatGPT conversation documents under an
// extraction root. OpenAI exports come in two shapes: a single
// conversations.json containing a top-level array of records, or one JSON
// document per conversation scattered through the tree. Both are accepted
// side by side.
type Parser struct{}

// NewParser creates a new conversation document parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseAll walks root and decodes every conversation document it finds.
// A JSON file is treated as a conversation document if it parses into an
// object carrying a `mapping` field, or into an array whose elements do.
// Files that parse as JSON but don't match either shape are silently
// skipped (they are ordinary media sidecar metadata, not conversation
// records); files that begin as a JSON object or array but fail to decode
// are skipped with an error recorded against that path, and files that
// begin with anything else are skipped silently.
func (p *Parser) ParseAll(root string) ([]discoveredRecord, []ParseError) {
	var records []discoveredRecord
	var errs []ParseError

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, ParseError{Path: path, Err: err})
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		convs, err := p.parseFile(path)
		if err != nil {
			errs = append(errs, ParseError{Path: path, Err: err})
			return nil
		}
		for _, c := range convs {
			records = append(records, discoveredRecord{raw: c, path: path})
		}
		return nil
	})

	return records, errs
}

// ParseError records a conversation document that failed to decode.
type ParseError struct {
	Path string
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// parseFile decodes one candidate JSON file into zero or more
// RawConversation records.
func (p *Parser) parseFile(path string) ([]RawConversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding array in %s: %w", path, err)
		}
		var out []RawConversation
		for _, r := range raw {
			var conv RawConversation
			if err := json.Unmarshal(r, &conv); err != nil {
				continue
			}
			if conv.Mapping == nil {
				continue
			}
			conv.SourcePath = path
			out = append(out, conv)
		}
		return out, nil
	case '{':
		var conv RawConversation
		if err := json.Unmarshal(data, &conv); err != nil {
			return nil, fmt.Errorf("decoding object in %s: %w", path, err)
		}
		if conv.Mapping == nil {
			return nil, nil
		}
		conv.SourcePath = path
		return []RawConversation{conv}, nil
	default:
		return nil, nil
	}
}
