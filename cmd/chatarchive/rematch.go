package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/chatarchive/internal/citation"
	"github.com/fyrsmithlabs/chatarchive/internal/config"
	"github.com/fyrsmithlabs/chatarchive/internal/media"
	"github.com/fyrsmithlabs/chatarchive/internal/output"
	"github.com/fyrsmithlabs/chatarchive/internal/resolver"
)

var rematchCmd = &cobra.Command{
	Use:   "rematch-media <out-dir>",
	Short: "Re-run media resolution over an existing output tree without re-unpacking the archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runRematch,
}

// runRematch reconstructs a media.Index by re-walking the out tree's
// media/ directories, reads back each surviving conversation's persisted
// citations.json, and re-runs the Resolver with the configured (possibly
// reordered) strategy chain. It rewrites media_manifest.json per
// conversation and index.json, but never re-copies media: every Path the
// Resolver can bind already sits under its conversation's media/ directory
// from the original run, so a citation that only a fresh extraction could
// satisfy stays unresolved here.
func runRematch(cmd *cobra.Command, args []string) error {
	outDir := args[0]
	info, err := os.Stat(outDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("output directory %q not found", outDir)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	folders, err := conversationFolders(outDir)
	if err != nil {
		return fmt.Errorf("listing conversation folders: %w", err)
	}

	mediaExtensions := cfg.Indexer.MediaExtensions
	if len(mediaExtensions) == 0 {
		mediaExtensions = config.DefaultMediaExtensions
	}
	workers := cfg.Indexer.Workers
	if workers < 1 {
		workers = 4
	}

	logger.Info(ctx, "rebuilding media index from existing output tree",
		zap.String("out_dir", outDir),
		zap.String("limitation", "conversation_directory_match cannot fire: output folders are not named by conversation id"),
	)
	indexer := media.NewIndexer(mediaExtensions, workers, logger)
	mediaIndex, err := indexer.Build(ctx, outDir, "")
	if err != nil {
		return fmt.Errorf("rebuilding media index: %w", err)
	}

	citationsByConv := make(map[string][]citation.Citation, len(folders))
	convDirByID := make(map[string]string, len(folders))
	for _, folder := range folders {
		convDir := filepath.Join(outDir, folder)
		records, err := output.ReadCitations(convDir)
		if err != nil {
			logger.Warn(ctx, "skipping folder without citations.json", zap.String("folder", folder), zap.Error(err))
			continue
		}
		// The output folder name is the only stable identifier left once a
		// fresh conversation id is unavailable without the original export.
		convID := folder
		convDirByID[convID] = convDir
		citationsByConv[convID] = output.ToCitations(convID, records)
	}

	res := resolver.NewResolver(cfg.Resolver.StrategyOrder, logger)
	resultsByConv, stats := res.Resolve(ctx, mediaIndex, citationsByConv)

	writer := output.NewWriter(outDir, cfg.Output.Flat, logger)
	convIDs := make([]string, 0, len(resultsByConv))
	for id := range resultsByConv {
		convIDs = append(convIDs, id)
	}
	sort.Strings(convIDs)
	for _, convID := range convIDs {
		if err := writer.RewriteManifest(convDirByID[convID], resultsByConv[convID]); err != nil {
			return fmt.Errorf("rewriting manifest for %s: %w", convID, err)
		}
	}

	if err := rewriteIndexStats(outDir, stats); err != nil {
		return fmt.Errorf("rewriting master index: %w", err)
	}

	if verbose {
		printStats(stats)
	}

	logger.Info(ctx, "rematch complete", zap.Int("conversations", len(convIDs)), zap.Int("unresolved", stats.TotalUnresolved))
	return nil
}

// rewriteIndexStats updates the resolver_stats block of an existing
// index.json in place, leaving its conversation descriptor list untouched.
func rewriteIndexStats(outDir string, stats *resolver.Stats) error {
	path := filepath.Join(outDir, "index.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	statsJSON, err := json.MarshalIndent(output.IndexStatsFrom(stats), "", "  ")
	if err != nil {
		return err
	}
	raw["resolver_stats"] = statsJSON
	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// conversationFolders lists out's top-level conversation directories,
// skipping the _with_media / _with_assets convenience symlink trees.
func conversationFolders(outDir string) ([]string, error) {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name == "_with_media" || name == "_with_assets" {
			continue
		}
		folders = append(folders, name)
	}
	return folders, nil
}
