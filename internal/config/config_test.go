package config_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/crawlindex/internal/config"
)

func seedURLs() []url.URL {
	return []url.URL{{Scheme: "https", Host: "example.com"}}
}

func TestWithDefault_BuildsCrawlDefaults(t *testing.T) {
	cfg, err := config.WithDefault(seedURLs()).Build()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxDepth())
	assert.Equal(t, 100, cfg.MaxPages())
	assert.Equal(t, 10, cfg.Concurrency())
	assert.Equal(t, time.Second, cfg.BaseDelay())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, "crawlindex/1.0", cfg.UserAgent())
	assert.Equal(t, "output", cfg.OutputDir())
	assert.Equal(t, []string{"cgi"}, cfg.ChildFilterSubstrings())
	assert.False(t, cfg.DryRun())
}

func TestBuild_EmptySeedsRejected(t *testing.T) {
	_, err := config.WithDefault(nil).Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestBuild_AllowedHostsDefaultToSeedHosts(t *testing.T) {
	seeds := []url.URL{
		{Scheme: "https", Host: "a.com"},
		{Scheme: "https", Host: "b.com:8080"},
	}
	cfg, err := config.WithDefault(seeds).Build()
	require.NoError(t, err)

	hosts := cfg.AllowedHosts()
	assert.Contains(t, hosts, "a.com")
	assert.Contains(t, hosts, "b.com:8080")
	assert.Len(t, hosts, 2)
}

func TestBuild_ExplicitAllowedHostsKept(t *testing.T) {
	cfg, err := config.WithDefault(seedURLs()).
		WithAllowedHosts(map[string]struct{}{"docs.example.com": {}}).
		Build()
	require.NoError(t, err)

	hosts := cfg.AllowedHosts()
	assert.Contains(t, hosts, "docs.example.com")
	assert.NotContains(t, hosts, "example.com")
}

func TestWithBuilders_ChainOverrides(t *testing.T) {
	cfg, err := config.WithDefault(seedURLs()).
		WithMaxDepth(7).
		WithMaxPages(500).
		WithConcurrency(32).
		WithBaseDelay(2 * time.Second).
		WithJitter(time.Millisecond).
		WithRandomSeed(42).
		WithMaxAttempt(3).
		WithChildFilterSubstrings([]string{"cgi", "logout"}).
		WithTimeout(time.Minute).
		WithUserAgent("auditbot/2.0").
		WithOutputDir("crawl-out").
		WithDryRun(true).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxDepth())
	assert.Equal(t, 500, cfg.MaxPages())
	assert.Equal(t, 32, cfg.Concurrency())
	assert.Equal(t, 2*time.Second, cfg.BaseDelay())
	assert.Equal(t, time.Millisecond, cfg.Jitter())
	assert.Equal(t, int64(42), cfg.RandomSeed())
	assert.Equal(t, 3, cfg.MaxAttempt())
	assert.Equal(t, []string{"cgi", "logout"}, cfg.ChildFilterSubstrings())
	assert.Equal(t, time.Minute, cfg.Timeout())
	assert.Equal(t, "auditbot/2.0", cfg.UserAgent())
	assert.Equal(t, "crawl-out", cfg.OutputDir())
	assert.True(t, cfg.DryRun())
}

func TestGetters_ReturnCopies(t *testing.T) {
	cfg, err := config.WithDefault(seedURLs()).Build()
	require.NoError(t, err)

	cfg.SeedURLs()[0] = url.URL{Host: "mutated.com"}
	assert.Equal(t, "example.com", cfg.SeedURLs()[0].Host)

	cfg.ChildFilterSubstrings()[0] = "mutated"
	assert.Equal(t, "cgi", cfg.ChildFilterSubstrings()[0])
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWithConfigFile_OverridesNonZeroFields(t *testing.T) {
	path := writeConfigFile(t, `{
		"seedUrls": [{"Scheme": "https", "Host": "seeded.com"}],
		"maxPages": 250,
		"userAgent": "filebot/1.0",
		"childFilterSubstrings": ["cgi-bin"]
	}`)

	cfg, err := config.WithConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "seeded.com", cfg.SeedURLs()[0].Host)
	assert.Equal(t, 250, cfg.MaxPages())
	assert.Equal(t, "filebot/1.0", cfg.UserAgent())
	assert.Equal(t, []string{"cgi-bin"}, cfg.ChildFilterSubstrings())
	// Untouched fields keep their defaults.
	assert.Equal(t, 3, cfg.MaxDepth())
	assert.Equal(t, 10, cfg.Concurrency())
}

func TestWithConfigFile_MissingFile(t *testing.T) {
	_, err := config.WithConfigFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrFileDoesNotExist))
}

func TestWithConfigFile_MalformedJSON(t *testing.T) {
	path := writeConfigFile(t, `{not json`)
	_, err := config.WithConfigFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfigParsingFail))
}

func TestWithConfigFile_EmptySeedsRejected(t *testing.T) {
	path := writeConfigFile(t, `{"maxPages": 5}`)
	_, err := config.WithConfigFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}
