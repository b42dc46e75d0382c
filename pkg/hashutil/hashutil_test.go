package hashutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rohmanhakim/crawlindex/pkg/hashutil"
)

func TestHashBytes_StableDigests(t *testing.T) {
	data := []byte("https://example.com/page")

	b3a, err := hashutil.HashBytes(data, hashutil.HashAlgoBLAKE3)
	if err != nil {
		t.Fatalf("blake3: %v", err)
	}
	b3b, _ := hashutil.HashBytes(data, hashutil.HashAlgoBLAKE3)
	if b3a != b3b {
		t.Error("expected a deterministic blake3 digest")
	}
	if len(b3a) != 64 {
		t.Errorf("expected 64 hex chars for a 32-byte digest, got %d", len(b3a))
	}

	sh, err := hashutil.HashBytes(data, hashutil.HashAlgoSHA256)
	if err != nil {
		t.Fatalf("sha256: %v", err)
	}
	if sh == b3a {
		t.Error("expected different digests from different algorithms")
	}
}

func TestHashBytes_DistinctInputsDistinctDigests(t *testing.T) {
	a, _ := hashutil.HashBytes([]byte("https://a.com"), hashutil.HashAlgoBLAKE3)
	b, _ := hashutil.HashBytes([]byte("https://b.com"), hashutil.HashAlgoBLAKE3)
	if a == b {
		t.Error("expected distinct URLs to hash differently")
	}
}

func TestHashBytes_UnsupportedAlgorithm(t *testing.T) {
	if _, err := hashutil.HashBytes([]byte("x"), "md5"); err == nil {
		t.Error("expected an error for an unsupported algorithm")
	}
}

func TestHashFile_MatchesHashBytes(t *testing.T) {
	content := []byte("postings bytes that would normally be megabytes")
	path := filepath.Join(t.TempDir(), "postings.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	fromFile, err := hashutil.HashFile(path, hashutil.HashAlgoBLAKE3)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	fromBytes, _ := hashutil.HashBytes(content, hashutil.HashAlgoBLAKE3)
	if fromFile != fromBytes {
		t.Error("expected the streaming digest to match the in-memory digest")
	}
}

func TestHashFile_MissingFile(t *testing.T) {
	_, err := hashutil.HashFile(filepath.Join(t.TempDir(), "missing.bin"), hashutil.HashAlgoBLAKE3)
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestHashFile_UnsupportedAlgorithm(t *testing.T) {
	_, err := hashutil.HashFile("irrelevant", "md5")
	if err == nil {
		t.Error("expected an error for an unsupported algorithm")
	}
}
