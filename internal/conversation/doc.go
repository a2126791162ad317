// Package conversation implements the Conversation Loader: it discovers
// ChatGPT conversation records under an extraction root, deduplicates them
// by conversation-id, drops empty or sentinel-timestamped records, and
// normalizes the surviving records into a canonical form carrying both the
// original branching map and a linearized, cycle-safe message view.
//
// # Architecture
//
// The main components are:
//   - Parser: locates and decodes conversation documents (a single combined
//     export or one document per conversation) from the extraction tree.
//   - Loader: deduplicates, filters, and normalizes records, producing the
//     linearized message view consumed by the Reference Extractor, Media
//     Resolver, Asset Extractor, and Output Writer.
//
// # Usage
//
//	loader := conversation.NewLoader(logger)
//	result, err := loader.Load(ctx, extractionRoot)
//	for _, conv := range result.Conversations {
//	    // conv.Messages is the linearized view; conv.Mapping is the original.
//	}
package conversation
