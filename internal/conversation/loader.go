package conversation

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/chatarchive/internal/logging"
)

// Loader discovers, deduplicates, and normalizes conversation records under
// an extraction root.
type Loader struct {
	parser *Parser
	logger *logging.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger *logging.Logger) *Loader {
	return &Loader{
		parser: NewParser(),
		logger: logger,
	}
}

// Load discovers every conversation document under root, deduplicates by
// conversation-id (keeping the record with the largest message count),
// drops empty or sentinel-timestamped records, and returns the normalized,
// linearized set.
func (l *Loader) Load(ctx context.Context, root string) (*LoadResult, error) {
	records, parseErrs := l.parser.ParseAll(root)
	for _, pe := range parseErrs {
		l.logger.Warn(ctx, "conversation document failed to parse", zap.String("path", pe.Path), zap.Error(pe.Err))
	}

	canonical := make(map[string]discoveredRecord)
	result := &LoadResult{}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := rec.raw.conversationID()
		if id == "" {
			result.Dropped = append(result.Dropped, DroppedRecord{Path: rec.path, Reason: "missing conversation id"})
			continue
		}

		existing, ok := canonical[id]
		if !ok || rec.raw.messageCount() > existing.raw.messageCount() {
			canonical[id] = rec
		}
	}

	ids := make([]string, 0, len(canonical))
	for id := range canonical {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := canonical[id]
		raw := rec.raw

		if raw.messageCount() == 0 {
			result.Dropped = append(result.Dropped, DroppedRecord{ID: id, Path: rec.path, Reason: "zero messages"})
			continue
		}
		if isEpochSentinel(raw.CreateTime) {
			result.Dropped = append(result.Dropped, DroppedRecord{ID: id, Path: rec.path, Reason: "null/epoch creation timestamp"})
			continue
		}

		conv := normalize(id, raw)
		result.Conversations = append(result.Conversations, conv)
	}

	l.logger.Info(ctx, "conversation loading complete",
		zap.Int("conversations", len(result.Conversations)),
		zap.Int("dropped", len(result.Dropped)),
	)

	return result, nil
}

// isEpochSentinel reports whether t is nil or the null/epoch sentinel
// OpenAI writes for conversations with no real creation time.
func isEpochSentinel(t *float64) bool {
	return t == nil || *t <= 0
}

// normalize builds the Conversation record for a surviving raw record,
// including its linearized message view.
func normalize(id string, raw RawConversation) Conversation {
	conv := Conversation{
		ID:      id,
		Title:   raw.Title,
		Mapping: raw.Mapping,
	}
	if raw.CreateTime != nil {
		conv.CreateTime = time.Unix(0, int64(*raw.CreateTime*float64(time.Second)))
	}
	if raw.UpdateTime != nil {
		conv.UpdateTime = time.Unix(0, int64(*raw.UpdateTime*float64(time.Second)))
	}

	conv.Messages = linearize(raw)
	return conv
}

// linearize flattens the branching map into an ordered message view.
// When current_node is present, it walks the parent chain from that node
// back to the root and reverses it. Otherwise it walks the whole tree
// depth-first from the root, visiting each node's children in order of
// creation time, so every branch is included. A
// visited-set guards both paths against a cyclic or self-referential
// mapping, since the source format has no structural guarantee against it.
func linearize(raw RawConversation) []LinearMessage {
	if raw.CurrentNode != "" {
		if msgs, ok := linearizeFromCurrentNode(raw); ok {
			return msgs
		}
	}
	return linearizeFromRoot(raw)
}

func linearizeFromCurrentNode(raw RawConversation) ([]LinearMessage, bool) {
	visited := make(map[string]bool)
	var chain []LinearMessage

	nodeID := raw.CurrentNode
	for nodeID != "" {
		if visited[nodeID] {
			break // cycle guard
		}
		visited[nodeID] = true

		node, ok := raw.Mapping[nodeID]
		if !ok {
			break
		}
		if node.Message != nil {
			chain = append(chain, LinearMessage{NodeID: nodeID, Message: *node.Message})
		}
		nodeID = node.Parent
	}

	if len(chain) == 0 {
		return nil, false
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, true
}

// findRoot returns a node-id with no parent. When every node has a parent
// it returns an arbitrary node of the mapping (map iteration order), and ""
// for an empty mapping.
func findRoot(raw RawConversation) string {
	for id, node := range raw.Mapping {
		if node.Parent == "" {
			return id
		}
	}
	// No explicit root: fall back to an arbitrary node.
	for id := range raw.Mapping {
		return id
	}
	return ""
}

func linearizeFromRoot(raw RawConversation) []LinearMessage {
	root := findRoot(raw)
	if root == "" {
		return nil
	}

	visited := make(map[string]bool)
	var out []LinearMessage

	var walk func(nodeID string)
	walk = func(nodeID string) {
		if nodeID == "" || visited[nodeID] {
			return
		}
		visited[nodeID] = true

		node, ok := raw.Mapping[nodeID]
		if !ok {
			return
		}
		if node.Message != nil {
			out = append(out, LinearMessage{NodeID: nodeID, Message: *node.Message})
		}

		children := make([]string, len(node.Children))
		copy(children, node.Children)
		sort.Slice(children, func(i, j int) bool {
			ci, iok := raw.Mapping[children[i]]
			cj, jok := raw.Mapping[children[j]]
			if !iok || !jok {
				return children[i] < children[j]
			}
			ti, tj := ci.Message.CreatedAt(), cj.Message.CreatedAt()
			if ti.Equal(tj) {
				return children[i] < children[j]
			}
			return ti.Before(tj)
		})

		for _, child := range children {
			walk(child)
		}
	}

	walk(root)
	return out
}
