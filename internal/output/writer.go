package output

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/chatarchive/internal/asset"
	"github.com/fyrsmithlabs/chatarchive/internal/citation"
	"github.com/fyrsmithlabs/chatarchive/internal/conversation"
	"github.com/fyrsmithlabs/chatarchive/internal/logging"
	"github.com/fyrsmithlabs/chatarchive/internal/resolver"
	"github.com/fyrsmithlabs/chatarchive/internal/sanitize"
)

// ErrOutputConflict is returned when the configured output directory
// already exists and is non-empty at start.
var ErrOutputConflict = fmt.Errorf("output directory exists and is non-empty")

// Writer emits the per-conversation output tree and master index.
type Writer struct {
	outDir string
	flat   bool
	logger *logging.Logger
}

// NewWriter creates a Writer rooted at outDir. flat disables the
// {date}_{title}_{ordinal} naming in favor of the ordinal alone.
func NewWriter(outDir string, flat bool, logger *logging.Logger) *Writer {
	return &Writer{outDir: outDir, flat: flat, logger: logger}
}

// EnsureEmpty verifies the output directory is empty or absent, per §5's
// "owned by the pipeline, must be empty or non-existent at start" rule.
func (w *Writer) EnsureEmpty() error {
	entries, err := os.ReadDir(w.outDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading output dir: %w", err)
	}
	if len(entries) > 0 {
		return ErrOutputConflict
	}
	return nil
}

// WriteConversation writes one surviving conversation's directory and
// returns its master-index descriptor.
func (w *Writer) WriteConversation(conv conversation.Conversation, result *resolver.ConversationResult, assets []asset.Asset, ordinal int) (ConversationDescriptor, error) {
	folderName := w.folderName(conv, ordinal)
	convDir := filepath.Join(w.outDir, folderName)
	if err := os.MkdirAll(convDir, 0755); err != nil {
		return ConversationDescriptor{}, fmt.Errorf("creating conversation dir: %w", err)
	}

	onDiskByPath, err := w.writeMedia(convDir, result.ResolvedMedia)
	if err != nil {
		return ConversationDescriptor{}, fmt.Errorf("writing media: %w", err)
	}

	if err := w.writeAssets(convDir, assets); err != nil {
		return ConversationDescriptor{}, fmt.Errorf("writing assets: %w", err)
	}

	if err := w.writeManifest(convDir, result, onDiskByPath); err != nil {
		return ConversationDescriptor{}, fmt.Errorf("writing manifest: %w", err)
	}

	if err := w.writeConversationDoc(convDir, conv, result, onDiskByPath); err != nil {
		return ConversationDescriptor{}, fmt.Errorf("writing conversation doc: %w", err)
	}

	if err := w.writeCitations(convDir, result); err != nil {
		return ConversationDescriptor{}, fmt.Errorf("writing citations: %w", err)
	}

	return ConversationDescriptor{
		ConversationID: conv.ID,
		Title:          conv.Title,
		Date:           conv.CreateTime.Format("2006-01-02"),
		FolderName:     folderName,
		MessageCount:   len(conv.Messages),
		HasMedia:       len(result.ResolvedMedia) > 0,
		HasAssets:      len(assets) > 0,
	}, nil
}

// folderName builds {date}_{slug}_{00001}, or just {00001} in flat mode.
func (w *Writer) folderName(conv conversation.Conversation, ordinal int) string {
	ord := fmt.Sprintf("%05d", ordinal)
	if w.flat {
		return ord
	}
	date := conv.CreateTime.Format("2006-01-02")
	slug := sanitize.Identifier(conv.Title)
	return fmt.Sprintf("%s_%s_%s", date, slug, ord)
}

// writeMedia copies every resolved media path into convDir/media, renamed
// to {hash8}_{basename}, and returns a map from source absolute path to the
// on-disk name chosen.
func (w *Writer) writeMedia(convDir string, resolvedMedia []string) (map[string]string, error) {
	onDisk := make(map[string]string, len(resolvedMedia))
	if len(resolvedMedia) == 0 {
		return onDisk, nil
	}

	mediaDir := filepath.Join(convDir, "media")
	if err := os.MkdirAll(mediaDir, 0755); err != nil {
		return nil, err
	}

	for _, srcPath := range resolvedMedia {
		name, err := copyWithHashPrefix(srcPath, mediaDir)
		if err != nil {
			return nil, fmt.Errorf("copying %s: %w", srcPath, err)
		}
		onDisk[srcPath] = name
	}

	return onDisk, nil
}

// copyWithHashPrefix streams src into destDir while hashing its content,
// then names the file {hash8}_{basename} once the digest is known.
func copyWithHashPrefix(src, destDir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(destDir, ".media-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	hash8 := hex.EncodeToString(hasher.Sum(nil))[:8]
	name := hash8 + "_" + filepath.Base(src)
	finalPath, err := sanitize.ValidatePath(filepath.Join(destDir, name), destDir)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return name, nil
}

func (w *Writer) writeAssets(convDir string, assets []asset.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	assetsDir := filepath.Join(convDir, "assets")
	if err := os.MkdirAll(assetsDir, 0755); err != nil {
		return err
	}
	for _, a := range assets {
		path, err := sanitize.ValidatePath(filepath.Join(assetsDir, a.Name), assetsDir)
		if err != nil {
			return fmt.Errorf("asset name %q: %w", a.Name, err)
		}
		if err := os.WriteFile(path, a.Payload, 0644); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeManifest(convDir string, result *resolver.ConversationResult, onDisk map[string]string) error {
	entries := make([]ManifestEntry, 0, len(result.Resolutions))
	for _, res := range result.Resolutions {
		if !res.Resolved || res.Path == "" {
			continue
		}
		entries = append(entries, ManifestEntry{
			Kind:     string(res.Citation.Kind),
			Payload:  res.Citation.Payload,
			OnDisk:   onDisk[res.Path],
			Strategy: res.Strategy,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Payload < entries[j].Payload })

	return writeJSON(filepath.Join(convDir, "media_manifest.json"), entries)
}

func (w *Writer) writeConversationDoc(convDir string, conv conversation.Conversation, result *resolver.ConversationResult, onDisk map[string]string) error {
	doc := NormalizedConversation{
		ConversationID: conv.ID,
		Title:          conv.Title,
		CreateTime:     conv.CreateTime.Format("2006-01-02T15:04:05Z07:00"),
		UpdateTime:     conv.UpdateTime.Format("2006-01-02T15:04:05Z07:00"),
		ResolvedMedia:  result.ResolvedMedia,
	}
	for _, lm := range conv.Messages {
		doc.Messages = append(doc.Messages, NormalizedMsg{
			NodeID: lm.NodeID,
			Role:   lm.Message.Author.Role,
			Text:   lm.Message.Content.Text,
		})
	}
	for _, c := range result.Unresolved {
		doc.Unresolved = append(doc.Unresolved, UnresolvedEntry{Kind: string(c.Kind), Payload: c.Payload})
	}

	return writeJSON(filepath.Join(convDir, "conversation.json"), doc)
}

// writeCitations persists every citation the Reference Extractor found for
// this conversation, resolved or not, so rematch-media can re-run the
// Resolver later without re-parsing the original export for attachments.
func (w *Writer) writeCitations(convDir string, result *resolver.ConversationResult) error {
	citations := make([]citation.Citation, len(result.Resolutions))
	for i, res := range result.Resolutions {
		citations[i] = res.Citation
	}
	return writeJSON(filepath.Join(convDir, "citations.json"), toCitationRecords(citations))
}

// ReadCitations loads a conversation directory's persisted citations.json,
// as written by writeCitations, for use by rematch-media.
func ReadCitations(convDir string) ([]CitationRecord, error) {
	data, err := os.ReadFile(filepath.Join(convDir, "citations.json"))
	if err != nil {
		return nil, err
	}
	var records []CitationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// RewriteManifest rewrites convDir/media_manifest.json from resolution
// results whose Path values already point at files under convDir/media,
// without copying media again. Used by rematch-media, which reconstructs a
// media.Index over an existing output tree rather than a fresh extraction.
func (w *Writer) RewriteManifest(convDir string, result *resolver.ConversationResult) error {
	onDisk := make(map[string]string, len(result.ResolvedMedia))
	for _, p := range result.ResolvedMedia {
		onDisk[p] = filepath.Base(p)
	}
	return w.writeManifest(convDir, result, onDisk)
}

// WriteIndex writes the master index and populates the _with_media and
// _with_assets convenience link directories.
func (w *Writer) WriteIndex(ctx context.Context, descriptors []ConversationDescriptor, stats *resolver.Stats) error {
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].FolderName < descriptors[j].FolderName })

	index := MasterIndex{
		TotalConversations: len(descriptors),
		Conversations:      descriptors,
		Stats:              IndexStatsFrom(stats),
	}
	if err := writeJSON(filepath.Join(w.outDir, "index.json"), index); err != nil {
		return fmt.Errorf("writing master index: %w", err)
	}

	if err := w.linkConvenienceDir(ctx, "_with_media", descriptors, func(d ConversationDescriptor) bool { return d.HasMedia }); err != nil {
		return err
	}
	if err := w.linkConvenienceDir(ctx, "_with_assets", descriptors, func(d ConversationDescriptor) bool { return d.HasAssets }); err != nil {
		return err
	}
	return nil
}

// linkConvenienceDir creates name/ under outDir with one relative symlink
// per conversation folder that satisfies include.
func (w *Writer) linkConvenienceDir(ctx context.Context, name string, descriptors []ConversationDescriptor, include func(ConversationDescriptor) bool) error {
	dir := filepath.Join(w.outDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	for _, d := range descriptors {
		if !include(d) {
			continue
		}
		linkPath := filepath.Join(dir, d.FolderName)
		target := filepath.Join("..", d.FolderName)
		if err := os.Symlink(target, linkPath); err != nil && !os.IsExist(err) {
			w.logger.Warn(ctx, "failed to create convenience symlink", zap.String("link", linkPath), zap.Error(err))
		}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
