package resolver

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/chatarchive/internal/citation"
	"github.com/fyrsmithlabs/chatarchive/internal/logging"
	"github.com/fyrsmithlabs/chatarchive/internal/media"
)

// Resolver applies the seven matching strategies, in strategyOrder, to bind
// citations to files in a media.Index.
type Resolver struct {
	strategyOrder []string
	logger        *logging.Logger
}

// NewResolver creates a Resolver. An empty strategyOrder falls back to
// DefaultStrategyOrder; a non-empty one is accepted verbatim so the
// rematch-media diagnostic can reorder or subset strategies.
func NewResolver(strategyOrder []string, logger *logging.Logger) *Resolver {
	if len(strategyOrder) == 0 {
		strategyOrder = DefaultStrategyOrder
	}
	return &Resolver{strategyOrder: strategyOrder, logger: logger}
}

// Resolve runs every conversation's citations through the strategy chain
// and returns the per-conversation results plus global strategy stats.
func (r *Resolver) Resolve(ctx context.Context, idx *media.Index, citationsByConv map[string][]citation.Citation) (map[string]*ConversationResult, *Stats) {
	results := make(map[string]*ConversationResult, len(citationsByConv))
	stats := newStats()

	convIDs := make([]string, 0, len(citationsByConv))
	for id := range citationsByConv {
		convIDs = append(convIDs, id)
	}
	sort.Strings(convIDs)

	for _, convID := range convIDs {
		citations := citationsByConv[convID]
		stats.TotalCitations += len(citations)
		result, resolutions := r.resolveConversation(ctx, idx, convID, citations)
		results[convID] = result

		for _, res := range resolutions {
			if res.Resolved {
				stats.PerStrategy[res.Strategy]++
			} else {
				stats.TotalUnresolved++
			}
		}
	}

	return results, stats
}

// strategyFunc tries to bind one citation, returning the matched file and
// true on success. Strategy 4 (conversation_directory_match) is handled
// separately since it resolves a citation without binding a single file.
type strategyFunc func(idx *media.Index, convID string, c citation.Citation) (*media.File, bool)

var strategyFuncs = map[string]strategyFunc{
	"hash_match":        hashMatch,
	"file_id_match":     fileIDMatch,
	"name_size_match":   nameSizeMatch,
	"size_gen_id_match": sizeGenIDMatch,
	"size_only_match":   sizeOnlyMatch,
	"inline_text_match": inlineTextMatch,
}

func (r *Resolver) resolveConversation(ctx context.Context, idx *media.Index, convID string, citations []citation.Citation) (*ConversationResult, []Resolution) {
	resolutions := make([]Resolution, len(citations))
	resolvedPaths := make(map[string]bool)
	pending := make([]int, len(citations))
	for i := range citations {
		pending[i] = i
		resolutions[i] = Resolution{Citation: citations[i]}
	}

	for _, strategy := range r.strategyOrder {
		if len(pending) == 0 {
			break
		}

		if strategy == "conversation_directory_match" {
			pending = r.applyConversationDirectoryMatch(idx, convID, citations, pending, resolutions, resolvedPaths)
			continue
		}

		fn, ok := strategyFuncs[strategy]
		if !ok {
			r.logger.Warn(ctx, "unknown resolver strategy, skipping", zap.String("strategy", strategy))
			continue
		}

		var stillPending []int
		for _, i := range pending {
			c := citations[i]
			if f, matched := fn(idx, convID, c); matched {
				resolutions[i] = Resolution{Citation: c, Resolved: true, Strategy: strategy, Path: f.Path}
				resolvedPaths[f.Path] = true
				continue
			}
			stillPending = append(stillPending, i)
		}
		pending = stillPending
	}

	var unresolved []citation.Citation
	for _, i := range pending {
		unresolved = append(unresolved, citations[i])
	}

	return &ConversationResult{
		ConversationID: convID,
		ResolvedMedia:  sortedPaths(resolvedPaths),
		Unresolved:     unresolved,
		Resolutions:    resolutions,
	}, resolutions
}

// applyConversationDirectoryMatch implements strategy 4: when at least one
// citation in the conversation is a dalle_asset or file_service_pointer, and
// the conversation's own directory holds at least one indexed file, the
// entire directory's files join ResolvedMedia and every still-pending
// citation in the conversation is considered resolved — individually, not
// bound to one specific file.
func (r *Resolver) applyConversationDirectoryMatch(idx *media.Index, convID string, citations []citation.Citation, pending []int, resolutions []Resolution, resolvedPaths map[string]bool) []int {
	if !guardSatisfied(citations) {
		return pending
	}
	files := idx.ByConversation[convID]
	if len(files) == 0 {
		return pending
	}

	for _, f := range files {
		resolvedPaths[f.Path] = true
	}
	for _, i := range pending {
		resolutions[i] = Resolution{Citation: citations[i], Resolved: true, Strategy: "conversation_directory_match"}
	}
	return nil
}

func guardSatisfied(citations []citation.Citation) bool {
	for _, c := range citations {
		if c.Kind == citation.KindDalleAsset || c.Kind == citation.KindFileServicePointer {
			return true
		}
	}
	return false
}

// hashMatch implements strategy 1: sediment hash lookup in by_hash.
func hashMatch(idx *media.Index, _ string, c citation.Citation) (*media.File, bool) {
	if c.Kind != citation.KindSedimentPointer {
		return nil, false
	}
	f, ok := idx.ByHash[c.Payload]
	return f, ok
}

// fileIDMatch implements strategy 2: file-id lookup in by_file_id.
func fileIDMatch(idx *media.Index, _ string, c citation.Citation) (*media.File, bool) {
	switch c.Kind {
	case citation.KindFileIDAttachment, citation.KindFileServicePointer, citation.KindInlineFileID:
	default:
		return nil, false
	}
	// Attachment ids keep their "file-" prefix while by_file_id is keyed by
	// the bare id, so the prefix is dropped before the lookup.
	f, ok := idx.ByFileID[strings.TrimPrefix(c.Payload, "file-")]
	return f, ok
}

// nameSizeMatch implements strategy 3: (name, size) lookup in by_name_size.
func nameSizeMatch(idx *media.Index, _ string, c citation.Citation) (*media.File, bool) {
	if c.Name == "" || c.Size <= 0 {
		return nil, false
	}
	return idx.ByNameSizeLookup(c.Name, c.Size)
}

// sizeGenIDMatch implements strategy 5: the resolver cooperatively finalizes
// by_size_and_gen_id the first time a (size, gen-id) pair is observed, since
// generator-ids only ever appear in conversation metadata, never filenames.
func sizeGenIDMatch(idx *media.Index, _ string, c citation.Citation) (*media.File, bool) {
	if c.Kind != citation.KindFileServicePointer || c.Size <= 0 || c.GenID == "" {
		return nil, false
	}
	f := idx.ResolveSizeAndGenID(c.Size, c.GenID)
	return f, f != nil
}

// sizeOnlyMatch implements strategy 6: bind only when exactly one file
// shares the citation's expected size, never guessing between candidates.
func sizeOnlyMatch(idx *media.Index, _ string, c citation.Citation) (*media.File, bool) {
	if c.Size <= 0 {
		return nil, false
	}
	candidates := idx.BySize[c.Size]
	if len(candidates) != 1 {
		return nil, false
	}
	return candidates[0], true
}

// inlineTextMatch implements strategy 7: take the unique MediaFile whose
// base name contains the citation's payload token.
func inlineTextMatch(idx *media.Index, _ string, c citation.Citation) (*media.File, bool) {
	if c.Kind != citation.KindInlineName && c.Kind != citation.KindInlineUUID {
		return nil, false
	}
	return idx.MatchBaseNameSubstring(c.Payload)
}
