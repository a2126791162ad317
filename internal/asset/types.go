package asset

// Kind distinguishes the two artifact shapes the Extractor produces.
type Kind string

const (
	KindCanvas    Kind = "canvas"
	KindCodeBlock Kind = "code_block"
)

// DefaultLanguage is used when neither metadata nor a fence declares one.
const DefaultLanguage = "txt"

// Asset is a code-bearing artifact extracted from a message.
type Asset struct {
	NodeID   string
	Ordinal  int
	Kind     Kind
	Language string
	Name     string
	Payload  []byte
}
