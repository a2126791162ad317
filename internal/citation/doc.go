// Package citation implements the Reference Extractor: for one conversation
// it walks every message and collects the media citations found in
// structured fields (attachments, asset pointers, image parts) and in free
// text, in the fixed order spec'd so the Resolver can process them
// deterministically.
package citation
