package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rohmanhakim/crawlindex/internal/index/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildSaveLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	postings := writeArtifact(t, dir, "postings.bin", "postings-bytes")
	lexicon := writeArtifact(t, dir, "lexicon.gob", "lexicon-bytes")

	built, err := manifest.Build(42, 7, map[string]string{
		"postings": postings,
		"lexicon":  lexicon,
	})
	require.NoError(t, err)
	assert.Equal(t, 42, built.Terms)
	assert.Equal(t, 7, built.Docs)
	require.Len(t, built.Entries, 2)

	manifestPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, manifest.Save(manifestPath, built))

	loaded, err := manifest.Load(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, built.Terms, loaded.Terms)
	assert.Equal(t, built.Docs, loaded.Docs)
	assert.ElementsMatch(t, built.Entries, loaded.Entries)
}

func TestVerify_DetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	postings := writeArtifact(t, dir, "postings.bin", "original-bytes")

	built, err := manifest.Build(1, 1, map[string]string{"postings": postings})
	require.NoError(t, err)

	ok, err := built.Verify()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(postings, []byte("tampered-bytes"), 0o644))

	ok, err = built.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuild_MissingArtifactErrors(t *testing.T) {
	_, err := manifest.Build(1, 1, map[string]string{"postings": filepath.Join(t.TempDir(), "missing.bin")})
	assert.Error(t, err)
}
