package resolver

import (
	"sort"

	"github.com/fyrsmithlabs/chatarchive/internal/citation"
)

// Default strategy order, by name, matching spec.md §4.4. rematch-media can
// override this via config.ResolverConfig.StrategyOrder.
var DefaultStrategyOrder = []string{
	"hash_match",
	"file_id_match",
	"name_size_match",
	"conversation_directory_match",
	"size_gen_id_match",
	"size_only_match",
	"inline_text_match",
}

// Resolution records the outcome for one citation.
type Resolution struct {
	Citation citation.Citation
	Resolved bool
	Strategy string // name of the strategy that resolved it, empty if unresolved
	Path     string // absolute path bound, empty for a strategy-4 block resolution
}

// ConversationResult is the per-conversation output of a Resolve call.
type ConversationResult struct {
	ConversationID string
	ResolvedMedia  []string // deduplicated absolute paths
	Unresolved     []citation.Citation

	// Resolutions records the per-citation outcome, in citation order, so
	// the Output Writer can build a media_manifest mapping each citation's
	// original token back to the file it bound to.
	Resolutions []Resolution
}

// Stats are global counters accumulated across every conversation resolved
// in one Resolve call.
type Stats struct {
	PerStrategy     map[string]int
	TotalCitations  int
	TotalUnresolved int
}

func newStats() *Stats {
	return &Stats{PerStrategy: make(map[string]int)}
}

// sortedPaths returns paths deduplicated and sorted lexicographically, so
// output ordering never depends on filesystem walk order or map iteration.
func sortedPaths(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
