package media

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/chatarchive/internal/logging"
)

// fileIDPattern matches the literal "file-" prefix followed by one or more
// alphanumerics and a terminating "_" or "-". The id is capture group 1;
// filenames where "file-" appears in the interior (not at position 0) do
// not match because the pattern is anchored.
var fileIDPattern = regexp.MustCompile(`^file-([A-Za-z0-9]+)[_-]`)

// hashPattern matches the exact form file_{32-hex}-{uuid-36}.{ext}.
var hashPattern = regexp.MustCompile(`^file_([0-9a-fA-F]{32})-[0-9a-fA-F-]{36}\.[A-Za-z0-9]+$`)

// Indexer walks an extraction tree once and builds a Index.
type Indexer struct {
	mediaExtensions map[string]bool
	workers         int
	logger          *logging.Logger
}

// NewIndexer creates an Indexer configured with the given media extension
// set (without leading dots) and worker count. A worker count below 2 runs
// the classification pass sequentially.
func NewIndexer(mediaExtensions []string, workers int, logger *logging.Logger) *Indexer {
	set := make(map[string]bool, len(mediaExtensions))
	for _, ext := range mediaExtensions {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	if workers < 1 {
		workers = 1
	}
	return &Indexer{mediaExtensions: set, workers: workers, logger: logger}
}

// Build walks root (and, if non-empty, recoveryRoot) and returns the
// resulting Index. Files under recoveryRoot are tagged FromRecovery and
// never displace an in-archive file on collision.
func (idx *Indexer) Build(ctx context.Context, root, recoveryRoot string) (*Index, error) {
	paths, err := idx.discover(ctx, root, false)
	if err != nil {
		return nil, fmt.Errorf("walking extraction root: %w", err)
	}

	var recoveryPaths []discoveredPath
	if recoveryRoot != "" {
		recoveryPaths, err = idx.discover(ctx, recoveryRoot, true)
		if err != nil {
			return nil, fmt.Errorf("walking recovery root: %w", err)
		}
	}

	files, err := idx.classify(ctx, paths)
	if err != nil {
		return nil, err
	}
	recoveryFiles, err := idx.classify(ctx, recoveryPaths)
	if err != nil {
		return nil, err
	}

	index := newIndex()
	for _, f := range files {
		idx.insert(index, f)
	}
	for _, f := range recoveryFiles {
		idx.insert(index, f)
	}

	idx.logger.Info(ctx, "media index built",
		zap.Int("files", len(files)+len(recoveryFiles)),
		zap.Int("by_file_id", len(index.ByFileID)),
		zap.Int("by_hash", len(index.ByHash)),
		zap.Int("by_conversation", len(index.ByConversation)),
	)

	return index, nil
}

type discoveredPath struct {
	path         string
	size         int64
	fromRecovery bool
}

// discover walks root and returns every regular file whose extension is in
// the configured media set, deferring magic-byte classification to the
// classify pass since it requires reading file content.
func (idx *Indexer) discover(ctx context.Context, root string, fromRecovery bool) ([]discoveredPath, error) {
	var out []discoveredPath
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			idx.logger.Warn(ctx, "media walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if !idx.mediaExtensions[ext] && !idx.maybeMagicCandidate(path) {
			return nil
		}
		out = append(out, discoveredPath{path: path, size: info.Size(), fromRecovery: fromRecovery})
		return nil
	})
	return out, err
}

// maybeMagicCandidate reports whether path deserves a magic-byte read even
// though its extension isn't in the configured set, e.g. the ambiguous
// ".dat" extension three generations of OpenAI exports have used for media.
func (idx *Indexer) maybeMagicCandidate(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".dat")
}

// classify reads each discovered path's header bytes and metadata,
// producing a File. The work is parallelized across idx.workers goroutines
// but collected back in input order so insertion into the Index (and hence
// "keep first encountered" dedup semantics) is deterministic regardless of
// scheduling.
func (idx *Indexer) classify(ctx context.Context, paths []discoveredPath) ([]*File, error) {
	results := make([]*File, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			f, err := idx.buildFile(p)
			if err != nil {
				idx.logger.Warn(gctx, "skipping unreadable media candidate", zap.String("path", p.path), zap.Error(err))
				return nil
			}
			results[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classifying media files: %w", err)
	}

	out := make([]*File, 0, len(results))
	for _, f := range results {
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

func (idx *Indexer) buildFile(p discoveredPath) (*File, error) {
	base := filepath.Base(p.path)

	class := classifyByExtension(base)
	if class == ClassOther {
		if magicClass, ok := classifyByMagic(p.path); ok {
			class = magicClass
		}
	}

	f := &File{
		Path:         p.path,
		BaseName:     base,
		Size:         p.size,
		Class:        class,
		ConvID:       nearestConversationID(p.path),
		FromRecovery: p.fromRecovery,
	}

	if m := fileIDPattern.FindStringSubmatch(base); m != nil {
		f.FileID = m[1]
	}
	if m := hashPattern.FindStringSubmatch(base); m != nil {
		f.ContentHash = strings.ToLower(m[1])
	}

	return f, nil
}

func classifyByExtension(name string) Class {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "png", "webp", "jpg", "jpeg", "gif", "bmp":
		return ClassImage
	case "wav", "mp3", "m4a", "ogg":
		return ClassAudio
	case "pdf":
		return ClassDocument
	default:
		return ClassOther
	}
}

// classifyByMagic reads the header bytes of path and classifies it using
// magic-byte detection, for ambiguous extensions (notably ".dat") where the
// filename alone doesn't reveal the container type.
func classifyByMagic(path string) (Class, bool) {
	f, err := os.Open(path)
	if err != nil {
		return ClassOther, false
	}
	defer f.Close()

	head := make([]byte, 261)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return ClassOther, false
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return ClassOther, false
	}

	switch {
	case strings.HasPrefix(kind.MIME.Value, "image/"):
		return ClassImage, true
	case strings.HasPrefix(kind.MIME.Value, "audio/"):
		return ClassAudio, true
	case kind.MIME.Value == "application/pdf":
		return ClassDocument, true
	default:
		return ClassOther, false
	}
}

// nearestConversationID walks path's ancestor directory names from deepest
// to shallowest and returns the first one that parses as a canonical
// 8-4-4-4-12 hex UUID.
func nearestConversationID(path string) string {
	dir := filepath.Dir(path)
	for {
		base := filepath.Base(dir)
		if isCanonicalUUID(base) {
			return base
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func isCanonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// insert adds f to every applicable index, honoring "first encountered
// wins" on unique-keyed indices and never letting a recovery-origin file
// displace an archive-origin one.
func (idx *Indexer) insert(index *Index, f *File) {
	index.BySize[f.Size] = append(index.BySize[f.Size], f)

	nsKey := nameSizeKey{Name: f.BaseName, Size: f.Size}
	insertUnique(index.ByNameSize, nsKey, f, "by_name_size", index, f.FromRecovery)

	if f.FileID != "" {
		insertUnique(index.ByFileID, f.FileID, f, "by_file_id", index, f.FromRecovery)
	}
	if f.ContentHash != "" {
		insertUnique(index.ByHash, f.ContentHash, f, "by_hash", index, f.FromRecovery)
	}
	if f.ConvID != "" {
		index.ByConversation[f.ConvID] = append(index.ByConversation[f.ConvID], f)
	}
}

// insertUnique inserts into a unique-keyed map, preferring an existing
// archive-origin entry over a later recovery-origin one, and otherwise
// keeping the first encountered entry and recording the collision.
func insertUnique[K comparable](m map[K]*File, key K, f *File, name string, index *Index, fromRecovery bool) {
	existing, ok := m[key]
	if !ok {
		m[key] = f
		return
	}
	if existing.FromRecovery && !fromRecovery {
		m[key] = f
		return
	}
	index.Collisions[name]++
}
