// Package asset implements the Asset Extractor: independently of media
// resolution, it scans each conversation's messages for canvas-typed content
// and fenced code blocks in free text, producing language-tagged Asset
// records named canvas_{nodeId}_{n}.{lang} or code_block_{nodeId}_{n}.{lang}.
package asset
