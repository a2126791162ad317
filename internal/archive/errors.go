package archive

import "errors"

// ErrRootExtractionFailed is returned when the root archive yields zero
// recovered entries through both the in-process and fallback extractors.
// A hard failure on a nested archive is never surfaced this way — it is
// logged and the nested archive is skipped instead.
var ErrRootExtractionFailed = errors.New("root archive extraction recovered no entries")
