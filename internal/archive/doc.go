// Package archive implements the Archive Extractor: it recursively unpacks
// a root archive and every nested archive found inside it into an ephemeral
// working directory, tolerating malformed archive headers via a fallback
// extraction path.
package archive
