package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mholt/archives"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/chatarchive/internal/logging"
	"github.com/fyrsmithlabs/chatarchive/internal/sanitize"
)

// Result is the outcome of an Extract call.
type Result struct {
	// WorkDir is the root of the extracted tree.
	WorkDir string

	// EntriesRecovered counts every file successfully written across the
	// root archive and all nested archives.
	EntriesRecovered int

	// SkippedArchives lists nested archives that failed extraction and
	// were skipped rather than failing the whole run.
	SkippedArchives []string
}

// Extractor unpacks a root archive and every nested archive it contains
// into a single working directory.
type Extractor struct {
	archiveExtensions map[string]bool
	externalTimeout   time.Duration
	logger            *logging.Logger
}

// NewExtractor creates an Extractor. archiveExtensions (without leading
// dots) controls which file extensions are treated as nested archives once
// unpacked. externalTimeout bounds a single fallback-extractor invocation;
// zero means no deadline.
func NewExtractor(archiveExtensions []string, externalTimeout time.Duration, logger *logging.Logger) *Extractor {
	set := make(map[string]bool, len(archiveExtensions))
	for _, ext := range archiveExtensions {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Extractor{archiveExtensions: set, externalTimeout: externalTimeout, logger: logger}
}

// Extract unpacks rootArchive into workDir, then recursively unpacks every
// nested archive discovered inside, in place, until no new archives are
// found.
func (e *Extractor) Extract(ctx context.Context, rootArchive, workDir string) (*Result, error) {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("creating work dir: %w", err)
	}

	result := &Result{WorkDir: workDir}

	queue := []string{rootArchive}
	for len(queue) > 0 {
		archivePath := queue[0]
		queue = queue[1:]

		isRoot := archivePath == rootArchive
		dest := e.destinationFor(workDir, rootArchive, archivePath)

		n, err := e.extractOne(ctx, archivePath, dest)
		if err != nil || n == 0 {
			if isRoot {
				return nil, fmt.Errorf("%w: %v", ErrRootExtractionFailed, err)
			}
			e.logger.Warn(ctx, "nested archive extraction failed, skipping", zap.String("archive", archivePath), zap.Error(err))
			result.SkippedArchives = append(result.SkippedArchives, archivePath)
			continue
		}

		result.EntriesRecovered += n

		nested, err := e.findArchives(dest)
		if err != nil {
			e.logger.Warn(ctx, "scanning for nested archives failed", zap.String("dir", dest), zap.Error(err))
			continue
		}
		queue = append(queue, nested...)
	}

	return result, nil
}

// destinationFor returns the directory an archive's contents are unpacked
// into: the root archive unpacks directly into workDir, a nested archive
// unpacks into a sibling directory named after itself with its extension
// replaced by "_extracted" (nested.zip -> nested_extracted), so its own
// nested archives can be found by a subsequent walk.
func (e *Extractor) destinationFor(workDir, rootArchive, archivePath string) string {
	if archivePath == rootArchive {
		return workDir
	}
	ext := filepath.Ext(archivePath)
	return strings.TrimSuffix(archivePath, ext) + "_extracted"
}

// extractOne unpacks one archive into dest, trying the in-process extractor
// first and falling back to an OS-level tolerant unpacker on failure.
// Returns the number of entries recovered.
func (e *Extractor) extractOne(ctx context.Context, archivePath, dest string) (int, error) {
	n, err := e.extractInProcess(ctx, archivePath, dest)
	if err == nil && n > 0 {
		return n, nil
	}
	if err != nil {
		e.logger.Debug(ctx, "in-process extraction failed, trying fallback tool", zap.String("archive", archivePath), zap.Error(err))
	}

	fallbackCtx := ctx
	var cancel context.CancelFunc
	if e.externalTimeout > 0 {
		fallbackCtx, cancel = context.WithTimeout(ctx, e.externalTimeout)
		defer cancel()
	}
	return e.extractWithFallbackTool(fallbackCtx, archivePath, dest)
}

// extractInProcess unpacks a ZIP archive using mholt/archives, which also
// tolerates a range of minor header irregularities on its own.
func (e *Extractor) extractInProcess(ctx context.Context, archivePath, dest string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	format, _, err := archives.Identify(ctx, archivePath, f)
	if err != nil {
		return 0, fmt.Errorf("identifying archive format: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return 0, fmt.Errorf("format for %s is not extractable in-process", archivePath)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewinding archive: %w", err)
	}

	count := 0
	handler := func(ctx context.Context, file archives.FileInfo) error {
		if file.IsDir() {
			return nil
		}
		target, err := sanitize.ValidatePath(filepath.Join(dest, filepath.FromSlash(file.NameInArchive)), dest)
		if err != nil {
			return fmt.Errorf("rejecting archive entry %q: %w", file.NameInArchive, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return err
		}
		defer src.Close()

		out, err := os.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()

		if _, err := io.Copy(out, src); err != nil {
			return err
		}
		count++
		return nil
	}

	if err := extractor.Extract(ctx, f, handler); err != nil && count == 0 {
		return 0, err
	}
	return count, nil
}

// extractWithFallbackTool shells out to a permissive command-line unpacker
// when in-process extraction fails or recovers nothing. The tool is always
// unzip (see fallbackCommand); no platform-specific unpacker is tried. It
// tolerates a non-zero exit as long as at least one file was written, since
// malformed archives can still yield partial recoveries.
func (e *Extractor) extractWithFallbackTool(ctx context.Context, archivePath, dest string) (int, error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("creating fallback destination: %w", err)
	}

	tool, args := fallbackCommand(archivePath, dest)
	cmd := exec.CommandContext(ctx, tool, args...)
	_ = cmd.Run() // best-effort: partial extraction is acceptable, count files on disk

	n, err := countFiles(dest)
	if err != nil {
		return 0, fmt.Errorf("counting recovered entries: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("fallback tool %s recovered no entries", tool)
	}
	return n, nil
}

// fallbackCommand returns the OS-level unpacker invocation for archivePath.
// `unzip -o` tolerates minor corruption and keeps going past bad entries,
// which is exactly the partial-success behavior the fallback path needs.
func fallbackCommand(archivePath, dest string) (string, []string) {
	return "unzip", []string{"-o", "-q", archivePath, "-d", dest}
}

func countFiles(dir string) (int, error) {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	return n, err
}

// findArchives walks dir and returns every file whose extension matches the
// configured nested-archive extension set.
func (e *Extractor) findArchives(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if e.archiveExtensions[ext] {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
