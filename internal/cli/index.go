package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/crawlindex/internal/config"
	"github.com/rohmanhakim/crawlindex/internal/index/daat"
	"github.com/rohmanhakim/crawlindex/internal/index/doclen"
	"github.com/rohmanhakim/crawlindex/internal/index/manifest"
	"github.com/rohmanhakim/crawlindex/internal/index/merge"
	"github.com/rohmanhakim/crawlindex/internal/index/parser"
	"github.com/rohmanhakim/crawlindex/internal/index/runio"
	"github.com/rohmanhakim/crawlindex/internal/index/search"
	"github.com/rohmanhakim/crawlindex/internal/index/shard"
	"github.com/rohmanhakim/crawlindex/internal/metadata"
)

var (
	buildRunsInput     string
	buildRunsOutdir    string
	buildRunsBatchSize int
	buildRunsWorkers   int

	mergeFanin   int
	mergeWorkers int
	mergeTmpDir  string
	mergeRounds  int

	finalizeBlockSize int
	finalizeCodec     string
	finalizeOutdir    string

	searchTopK  int
	searchMode  string
	searchDir   string
	searchCodec string
)

var buildRunsCmd = &cobra.Command{
	Use:   "build-runs",
	Short: "Stream a TSV corpus into sorted intermediate runs and a doc-length table",
	RunE:  runBuildRuns,
}

var parallelMergeCmd = &cobra.Command{
	Use:   "parallel-merge <run> [run...]",
	Short: "Reduce a set of sorted runs via bounded-fanin k-way merge",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParallelMerge,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <run> [run...]",
	Short: "Merge the remaining runs directly into the final blocked postings and lexicon",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFinalize,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a Boolean or BM25 query against a finalized index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	buildRunsCmd.Flags().StringVar(&buildRunsInput, "input", "", "path to the corpus TSV file (required)")
	buildRunsCmd.Flags().StringVar(&buildRunsOutdir, "outdir", "", "directory to write runs and the doc-lengths table into (required)")
	buildRunsCmd.Flags().IntVar(&buildRunsBatchSize, "batch-size", 0, "documents per shard before a run is flushed (defaults to the index config default)")
	buildRunsCmd.Flags().IntVar(&buildRunsWorkers, "workers", 0, "unused by the single-pass streaming build; accepted for CLI symmetry with merge/finalize")
	buildRunsCmd.MarkFlagRequired("input")
	buildRunsCmd.MarkFlagRequired("outdir")

	parallelMergeCmd.Flags().IntVar(&mergeFanin, "fanin", 0, "runs combined per merge group (defaults to the index config default)")
	parallelMergeCmd.Flags().IntVar(&mergeWorkers, "workers", 0, "parallel merge groups per round (defaults to the index config default)")
	parallelMergeCmd.Flags().StringVar(&mergeTmpDir, "tmpdir", "", "directory for intermediate round outputs (defaults to the index config default)")
	parallelMergeCmd.Flags().IntVar(&mergeRounds, "rounds", 0, "cap on merge rounds (0 for unbounded)")

	finalizeCmd.Flags().IntVar(&finalizeBlockSize, "block", 0, "postings per on-disk block (defaults to the index config default)")
	finalizeCmd.Flags().StringVar(&finalizeCodec, "codec", "", "block codec: raw or varbyte (defaults to the index config default)")
	finalizeCmd.Flags().StringVar(&finalizeOutdir, "outdir", "", "directory to write postings.bin and lexicon.gob into (required)")
	finalizeCmd.MarkFlagRequired("outdir")

	searchCmd.Flags().StringVar(&searchDir, "index-dir", "", "directory containing postings.bin, lexicon.gob, and doclengths.gob (required)")
	searchCmd.Flags().IntVar(&searchTopK, "topk", 10, "number of BM25 results to return (0 runs a Boolean query instead)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "OR", "query mode: AND or OR")
	searchCmd.Flags().StringVar(&searchCodec, "codec", "raw", "block codec the index was finalized with: raw or varbyte")
	searchCmd.MarkFlagRequired("index-dir")

	rootCmd.AddCommand(buildRunsCmd)
	rootCmd.AddCommand(parallelMergeCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(searchCmd)
}

// loadIndexConfig builds an IndexConfig from defaults, overridden by
// whichever of the seven tunables the caller set to a nonzero value.
func loadIndexConfig(blockSize, fanin, workers, rounds, batchSize int, codec config.Codec, tmpDir string) (config.IndexConfig, error) {
	builder := config.WithDefaultIndexConfig()
	if blockSize > 0 {
		builder = builder.WithBlockSize(blockSize)
	}
	if codec != "" {
		builder = builder.WithCodec(codec)
	}
	if fanin > 0 {
		builder = builder.WithFanin(fanin)
	}
	if workers > 0 {
		builder = builder.WithWorkers(workers)
	}
	if rounds > 0 {
		builder = builder.WithRounds(rounds)
	}
	if tmpDir != "" {
		builder = builder.WithTmpDir(tmpDir)
	}
	if batchSize > 0 {
		builder = builder.WithBatchSize(batchSize)
	}
	return builder.Build()
}

func runBuildRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadIndexConfig(0, 0, 0, 0, buildRunsBatchSize, "", "")
	if err != nil {
		return err
	}

	seq, errFn := parser.IterDocs(buildRunsInput, 0)

	recorder := metadata.NewStderrRecorder()
	lengths := doclen.New()
	var batch []parser.Doc
	runCount := 0

	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		idx := shard.Build(batch)
		for docid, length := range shard.DocLengths(batch) {
			lengths.Lengths[docid] = length
		}
		runPath := filepath.Join(buildRunsOutdir, fmt.Sprintf("run-%04d.bin", runCount))
		w, err := runio.NewBinaryWriter(runPath)
		if err != nil {
			return err
		}
		if err := w.WriteShard(idx); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		runCount++
		batch = batch[:0]
		recorder.RecordArtifact(metadata.ArtifactRun, runPath, []metadata.Attribute{
			metadata.NewAttr(metadata.AttrCount, strconv.Itoa(len(idx))),
		})
		fmt.Printf("wrote %s (%d terms)\n", runPath, len(idx))
		return nil
	}

	for doc := range seq {
		batch = append(batch, doc)
		if len(batch) >= cfg.BatchSize() {
			if err := flushBatch(); err != nil {
				return err
			}
		}
	}
	if err := errFn(); err != nil {
		return err
	}
	if err := flushBatch(); err != nil {
		return err
	}

	doclenPath := filepath.Join(buildRunsOutdir, "doclengths.gob")
	if err := doclen.Save(doclenPath, lengths); err != nil {
		return err
	}
	recorder.RecordIndexArtifact(metadata.ArtifactDocLengths, doclenPath, 0, lengths.N())

	fmt.Printf("Runs written: %d\n", runCount)
	fmt.Printf("Documents indexed: %d\n", lengths.N())
	fmt.Printf("Doc-lengths table: %s\n", doclenPath)
	return nil
}

func runParallelMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadIndexConfig(0, mergeFanin, mergeWorkers, mergeRounds, 0, "", mergeTmpDir)
	if err != nil {
		return err
	}

	recorder := metadata.NewStderrRecorder()

	runs := append([]string(nil), args...)
	sort.Strings(runs)

	reduced, err := merge.ReduceRounds(runs, cfg, recorder)
	if err != nil {
		return fmt.Errorf("parallel-merge aborted: %w", err)
	}

	fmt.Printf("Runs remaining: %d\n", len(reduced))
	for _, r := range reduced {
		fmt.Println(r)
	}
	return nil
}

func runFinalize(cmd *cobra.Command, args []string) error {
	var codec config.Codec
	if finalizeCodec != "" {
		codec = config.Codec(finalizeCodec)
	}
	cfg, err := loadIndexConfig(finalizeBlockSize, 0, 0, 0, 0, codec, "")
	if err != nil {
		return err
	}

	postingsPath := filepath.Join(finalizeOutdir, "postings.bin")
	lexiconPath := filepath.Join(finalizeOutdir, "lexicon.gob")

	lex, err := merge.Finalize(args, postingsPath, lexiconPath, cfg)
	if err != nil {
		return fmt.Errorf("finalize aborted: %w", err)
	}

	// finalize may run over post-merge runs that no longer live beside the
	// doc-lengths table build-runs wrote; rebuilding from the runs being
	// finalized is always correct and serves as a sanity check on the runs
	// themselves.
	doclenPath := filepath.Join(finalizeOutdir, "doclengths.gob")
	table, rebuildErr := doclen.RebuildFromRuns(args)
	if rebuildErr != nil {
		return fmt.Errorf("rebuild doc-lengths: %w", rebuildErr)
	}
	if err := doclen.Save(doclenPath, table); err != nil {
		return err
	}

	recorder := metadata.NewStderrRecorder()
	recorder.RecordIndexArtifact(metadata.ArtifactPostings, postingsPath, len(lex.Map), table.N())
	recorder.RecordIndexArtifact(metadata.ArtifactLexicon, lexiconPath, len(lex.Map), table.N())
	recorder.RecordIndexArtifact(metadata.ArtifactDocLengths, doclenPath, len(lex.Map), table.N())

	manifestPath := filepath.Join(finalizeOutdir, "manifest.json")
	man, err := manifest.Build(len(lex.Map), table.N(), map[string]string{
		string(metadata.ArtifactPostings):   postingsPath,
		string(metadata.ArtifactLexicon):    lexiconPath,
		string(metadata.ArtifactDocLengths): doclenPath,
	})
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	if err := manifest.Save(manifestPath, man); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	fmt.Printf("Terms indexed: %d\n", len(lex.Map))
	fmt.Printf("Postings file: %s\n", postingsPath)
	fmt.Printf("Lexicon file: %s\n", lexiconPath)
	fmt.Printf("Doc-lengths file: %s\n", doclenPath)
	fmt.Printf("Manifest: %s\n", manifestPath)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	mode := daat.ModeOR
	switch searchMode {
	case "AND", "and":
		mode = daat.ModeAND
	case "OR", "or", "":
		mode = daat.ModeOR
	default:
		return fmt.Errorf("unknown mode %q: must be AND or OR", searchMode)
	}

	postingsPath := filepath.Join(searchDir, "postings.bin")
	lexiconPath := filepath.Join(searchDir, "lexicon.gob")
	doclenPath := filepath.Join(searchDir, "doclengths.gob")

	codec := config.CodecRaw
	if searchCodec != "" {
		codec = config.Codec(searchCodec)
	}

	searcher, err := search.NewSearcher(postingsPath, lexiconPath, doclenPath, codec)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer searcher.Close()

	query := args[0]

	if searchTopK > 0 {
		results, err := searcher.SearchBM25(query, searchTopK, mode)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%d\t%s\n", r.DocID, strconv.FormatFloat(r.Score, 'f', 4, 64))
		}
		fmt.Printf("Total results: %d\n", len(results))
		return nil
	}

	docids, err := searcher.SearchBoolean(query, mode)
	if err != nil {
		return err
	}
	for _, d := range docids {
		fmt.Println(d)
	}
	fmt.Printf("Total results: %d\n", len(docids))
	return nil
}
