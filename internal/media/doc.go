// Package media implements the Media Indexer: a single walk of the
// extraction tree that classifies every media-like file and inserts it into
// the six lookup indices the Media Resolver queries against.
package media
