package search_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/crawlindex/internal/config"
	"github.com/rohmanhakim/crawlindex/internal/index/daat"
	"github.com/rohmanhakim/crawlindex/internal/index/doclen"
	"github.com/rohmanhakim/crawlindex/internal/index/merge"
	"github.com/rohmanhakim/crawlindex/internal/index/runio"
	"github.com/rohmanhakim/crawlindex/internal/index/search"
	"github.com/rohmanhakim/crawlindex/internal/index/shard"
)

func buildTestIndex(t *testing.T) (postingsPath, lexiconPath, doclenPath string) {
	t.Helper()
	dir := t.TempDir()

	docs := shard.Index{
		"hello": {1: 2, 2: 1, 3: 1},
		"world": {2: 1, 3: 2},
		"cat":   {3: 1},
	}
	runPath := filepath.Join(dir, "run0.run")
	w, err := runio.NewBinaryWriter(runPath)
	require.NoError(t, err)
	require.NoError(t, w.WriteShard(docs))
	require.NoError(t, w.Close())

	cfg, err := config.WithDefaultIndexConfig().WithCodec(config.CodecVarByte).WithBlockSize(2).Build()
	require.NoError(t, err)

	postingsPath = filepath.Join(dir, "index.postings")
	lexiconPath = filepath.Join(dir, "index.lexicon")
	_, err = merge.Finalize([]string{runPath}, postingsPath, lexiconPath, cfg)
	require.NoError(t, err)

	lengths := doclen.New()
	lengths.Lengths[1] = 2
	lengths.Lengths[2] = 2
	lengths.Lengths[3] = 4
	doclenPath = filepath.Join(dir, "index.doclen")
	require.NoError(t, doclen.Save(doclenPath, lengths))

	return postingsPath, lexiconPath, doclenPath
}

func TestSearcher_SearchBoolean(t *testing.T) {
	postingsPath, lexiconPath, doclenPath := buildTestIndex(t)
	s, err := search.NewSearcher(postingsPath, lexiconPath, doclenPath, config.CodecVarByte)
	require.NoError(t, err)
	defer s.Close()

	results, err := s.SearchBoolean("hello world", daat.ModeAND)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, results)

	results, err = s.SearchBoolean("hello cat", daat.ModeOR)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, results)
}

func TestSearcher_SearchBoolean_UnknownTerm(t *testing.T) {
	postingsPath, lexiconPath, doclenPath := buildTestIndex(t)
	s, err := search.NewSearcher(postingsPath, lexiconPath, doclenPath, config.CodecVarByte)
	require.NoError(t, err)
	defer s.Close()

	results, err := s.SearchBoolean("nonexistent", daat.ModeOR)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearcher_SearchBM25(t *testing.T) {
	postingsPath, lexiconPath, doclenPath := buildTestIndex(t)
	s, err := search.NewSearcher(postingsPath, lexiconPath, doclenPath, config.CodecVarByte)
	require.NoError(t, err)
	defer s.Close()

	results, err := s.SearchBM25("hello world", 10, daat.ModeOR)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearcher_MissingDocLengths_BooleanWorksBM25Empty(t *testing.T) {
	postingsPath, lexiconPath, _ := buildTestIndex(t)
	missingDoclenPath := filepath.Join(filepath.Dir(postingsPath), "absent.doclen")

	s, err := search.NewSearcher(postingsPath, lexiconPath, missingDoclenPath, config.CodecVarByte)
	require.NoError(t, err)
	defer s.Close()

	results, err := s.SearchBoolean("hello world", daat.ModeAND)
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3}, results)

	scored, err := s.SearchBM25("hello world", 10, daat.ModeOR)
	require.NoError(t, err)
	assert.Empty(t, scored)
}
