// Package resolver implements the Media Resolver: it applies seven citation
// matching strategies, in DefaultStrategyOrder unless the caller supplies
// another order, against a media.Index to bind each
// conversation's citations to files on disk, producing a deduplicated
// resolved-media set per conversation, per-citation resolution status, and
// global per-strategy statistics.
package resolver
