// Package main implements the chatarchive CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/chatarchive/internal/archive"
	"github.com/fyrsmithlabs/chatarchive/internal/asset"
	"github.com/fyrsmithlabs/chatarchive/internal/citation"
	"github.com/fyrsmithlabs/chatarchive/internal/config"
	"github.com/fyrsmithlabs/chatarchive/internal/conversation"
	"github.com/fyrsmithlabs/chatarchive/internal/logging"
	"github.com/fyrsmithlabs/chatarchive/internal/media"
	"github.com/fyrsmithlabs/chatarchive/internal/output"
	"github.com/fyrsmithlabs/chatarchive/internal/resolver"
	"github.com/fyrsmithlabs/chatarchive/internal/sanitize"
)

var (
	outDir     string
	verbose    bool
	flat       bool
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "chatarchive <archive>",
	Short:   "Unpack a ChatGPT conversation export into a browsable, media-resolved corpus",
	Args:    cobra.ExactArgs(1),
	RunE:    runExtract,
	Version: "dev",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outDir, "out", "o", "./out", "output directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print per-strategy resolution stats")
	rootCmd.PersistentFlags().BoolVar(&flat, "flat", false, "name conversation folders by ordinal only")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/chatarchive/config.yaml)")
	rootCmd.AddCommand(rematchCmd)
}

// exitCodeFor maps fatal pipeline errors to process exit codes: a malformed
// root archive is 2, any other fatal error is 1.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, archive.ErrRootExtractionFailed) {
		return 2
	}
	return 1
}

func runExtract(cmd *cobra.Command, args []string) (err error) {
	archivePath, err := sanitize.ValidateArchivePath(args[0])
	if err != nil {
		return fmt.Errorf("invalid archive path: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Output.Dir = outDir
	cfg.Output.Flat = flat
	cfg.Output.Verbose = verbose
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	workDir := cfg.Extraction.WorkDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "chatarchive-work-")
		if err != nil {
			return fmt.Errorf("creating work dir: %w", err)
		}
		defer func() {
			if err == nil {
				os.RemoveAll(workDir)
			}
		}()
	}

	archiveExtensions := cfg.Extraction.ArchiveExtensions
	if len(archiveExtensions) == 0 {
		archiveExtensions = config.DefaultArchiveExtensions
	}
	extractor := archive.NewExtractor(archiveExtensions, cfg.Extraction.ExternalToolDeadline.Duration(), logger)
	extractResult, err := extractor.Extract(ctx, archivePath, workDir)
	if err != nil {
		return fmt.Errorf("archive extraction: %w", err)
	}
	logger.Info(ctx, "archive extracted",
		zap.Int("entries", extractResult.EntriesRecovered),
		zap.Int("skipped_nested_archives", len(extractResult.SkippedArchives)),
	)

	recoveryRoot := cfg.Indexer.RecoveredFilesDir
	if recoveryRoot == "" {
		recoveryRoot = recoveryFolder(archivePath)
	}

	mediaExtensions := cfg.Indexer.MediaExtensions
	if len(mediaExtensions) == 0 {
		mediaExtensions = config.DefaultMediaExtensions
	}
	workers := cfg.Indexer.Workers
	if workers < 1 {
		workers = 4
	}
	indexer := media.NewIndexer(mediaExtensions, workers, logger)
	mediaIndex, err := indexer.Build(ctx, workDir, recoveryRoot)
	if err != nil {
		return fmt.Errorf("media indexing: %w", err)
	}

	loader := conversation.NewLoader(logger)
	loadResult, err := loader.Load(ctx, workDir)
	if err != nil {
		return fmt.Errorf("conversation loading: %w", err)
	}
	for _, dropped := range loadResult.Dropped {
		logger.Info(ctx, "conversation dropped", zap.String("id", dropped.ID), zap.String("reason", dropped.Reason))
	}

	convs := loadResult.Conversations
	sort.Slice(convs, func(i, j int) bool { return convs[i].ID < convs[j].ID })

	refExtractor := citation.NewExtractor(mediaExtensions)
	citationsByConv := make(map[string][]citation.Citation, len(convs))
	for _, conv := range convs {
		citationsByConv[conv.ID] = refExtractor.Extract(conv)
	}

	res := resolver.NewResolver(cfg.Resolver.StrategyOrder, logger)
	resultsByConv, stats := res.Resolve(ctx, mediaIndex, citationsByConv)

	assetExtractor := asset.NewExtractor()

	writer := output.NewWriter(cfg.Output.Dir, cfg.Output.Flat, logger)
	if err := writer.EnsureEmpty(); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	var bar *progressbar.ProgressBar
	if verbose {
		bar = progressbar.NewOptions(len(convs),
			progressbar.OptionSetDescription("writing conversations"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
	}

	descriptors := make([]output.ConversationDescriptor, len(convs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, conv := range convs {
		i, conv := i, conv
		g.Go(func() error {
			result := resultsByConv[conv.ID]
			assets := assetExtractor.Extract(conv)
			desc, err := writer.WriteConversation(conv, result, assets, i+1)
			if err != nil {
				return fmt.Errorf("writing conversation %s: %w", conv.ID, err)
			}
			descriptors[i] = desc
			if bar != nil {
				bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}

	if err := writer.WriteIndex(ctx, descriptors, stats); err != nil {
		return fmt.Errorf("writing master index: %w", err)
	}

	if verbose {
		printStats(stats)
	}

	return nil
}

// recoveryFolder returns the recovered_files directory alongside archivePath,
// if present.
func recoveryFolder(archivePath string) string {
	dir := filepath.Join(filepath.Dir(archivePath), "recovered_files")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the ambient logging.Logger used across the pipeline,
// switching to console encoding and debug level in verbose mode.
func newLogger(verbose bool) (*logging.Logger, error) {
	cfg := logging.NewDefaultConfig()
	if verbose {
		cfg.Format = "console"
		cfg.Level = zapcore.DebugLevel
	}
	return logging.NewLogger(cfg, nil)
}

func printStats(stats *resolver.Stats) {
	fmt.Println("strategy              resolved")
	strategies := make([]string, 0, len(stats.PerStrategy))
	for name := range stats.PerStrategy {
		strategies = append(strategies, name)
	}
	sort.Strings(strategies)
	for _, name := range strategies {
		fmt.Printf("%-22s %d\n", name, stats.PerStrategy[name])
	}
	fmt.Printf("%-22s %d\n", "unresolved", stats.TotalUnresolved)
}
