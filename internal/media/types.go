package media

import "strings"

// Class is the coarse MIME classification assigned to a MediaFile.
type Class string

const (
	ClassImage    Class = "image"
	ClassAudio    Class = "audio"
	ClassDocument Class = "document"
	ClassOther    Class = "other"
)

// File is one physical file discovered under the extraction root.
type File struct {
	Path         string
	BaseName     string
	Size         int64
	FileID       string // populated when the name matches the file-{ID}_/- pattern
	ContentHash  string // populated when the name matches file_{32-hex}-{uuid}.ext
	ConvID       string // nearest ancestor directory that is a canonical UUID
	Class        Class
	FromRecovery bool // true when discovered under the supplementary recovery root
}

// sizeGenKey is the composite key for the by_size_and_gen_id index, which
// the Resolver finalizes cooperatively (§4.4 strategy 5) since generator-ids
// only ever appear in conversation metadata, never in filenames.
type sizeGenKey struct {
	Size  int64
	GenID string
}

// nameSizeKey is the composite key for the by_name_size index.
type nameSizeKey struct {
	Name string
	Size int64
}

// Index is the read-only aggregation the Media Indexer builds exactly once.
// All fields are populated by Build except BySizeAndGenID, which starts empty
// and is finalized lazily by the Resolver.
type Index struct {
	ByConversation map[string][]*File
	ByFileID       map[string]*File
	ByHash         map[string]*File
	BySize         map[int64][]*File
	ByNameSize     map[nameSizeKey]*File
	BySizeAndGenID map[sizeGenKey]*File

	// claimedBySize tracks, per size, which BySize candidates have already
	// been claimed by some gen-id so a genuine same-size collision between
	// N files disambiguates against N distinct gen-ids instead of every
	// citation sharing that size falling through unresolved.
	claimedBySize map[int64]map[string]bool

	// Collisions counts keys that were already occupied when a later
	// duplicate was discarded, per index name, for verbose reporting.
	Collisions map[string]int
}

func newIndex() *Index {
	return &Index{
		ByConversation: make(map[string][]*File),
		ByFileID:       make(map[string]*File),
		ByHash:         make(map[string]*File),
		BySize:         make(map[int64][]*File),
		ByNameSize:     make(map[nameSizeKey]*File),
		BySizeAndGenID: make(map[sizeGenKey]*File),
		claimedBySize:  make(map[int64]map[string]bool),
		Collisions:     make(map[string]int),
	}
}

// ResolveSizeAndGenID finalizes the by_size_and_gen_id index for one
// (size, gen-id) pair observed in a citation. Each distinct gen-id for a
// given size claims the next not-yet-claimed file of that size, in walk
// order, so N genuinely same-sized files disambiguate one-to-one against N
// distinct gen-ids rather than every one of them falling through as
// ambiguous. A size with no unclaimed candidate left returns nil. Later
// calls for an already-bound (size, gen-id) key return the same file.
func (idx *Index) ResolveSizeAndGenID(size int64, genID string) *File {
	key := sizeGenKey{Size: size, GenID: genID}
	if f, ok := idx.BySizeAndGenID[key]; ok {
		return f
	}
	candidates := idx.BySize[size]
	if len(candidates) == 0 {
		return nil
	}
	claimed := idx.claimedBySize[size]
	if claimed == nil {
		claimed = make(map[string]bool, len(candidates))
		idx.claimedBySize[size] = claimed
	}
	for _, f := range candidates {
		if claimed[f.Path] {
			continue
		}
		claimed[f.Path] = true
		idx.BySizeAndGenID[key] = f
		return f
	}
	return nil
}

// ByNameSizeLookup looks up the by_name_size index for strategy 3.
func (idx *Index) ByNameSizeLookup(name string, size int64) (*File, bool) {
	f, ok := idx.ByNameSize[nameSizeKey{Name: name, Size: size}]
	return f, ok
}

// MatchBaseNameSubstring scans every indexed file's base name for one
// containing token, binding only when the match is unique (strategy 7 never
// guesses between candidates).
func (idx *Index) MatchBaseNameSubstring(token string) (*File, bool) {
	if token == "" {
		return nil, false
	}
	var match *File
	for _, files := range idx.BySize {
		for _, f := range files {
			if strings.Contains(f.BaseName, token) {
				if match != nil && match.Path != f.Path {
					return nil, false
				}
				match = f
			}
		}
	}
	if match == nil {
		return nil, false
	}
	return match, true
}
