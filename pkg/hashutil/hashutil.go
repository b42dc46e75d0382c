// Package hashutil computes the content hashes this repository records:
// the audit sink's per-URL dedupe keys and the build manifest's artifact
// checksums. blake3 is the working algorithm; sha256 is kept as a
// fallback for consumers that need a FIPS-familiar digest.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 = "sha256"
	HashAlgoBLAKE3 = "blake3"
)

func newHasher(algo HashAlgo) (hash.Hash, error) {
	switch algo {
	case HashAlgoSHA256:
		return sha256.New(), nil
	case HashAlgoBLAKE3:
		return blake3.New(32, nil), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// HashBytes returns algo's hex digest of data.
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFile streams the file at path through algo's hash, never holding
// the whole file in memory; used for checksumming multi-megabyte index
// artifacts (postings, lexicon, doc-lengths) into the build manifest.
func HashFile(path string, algo HashAlgo) (string, error) {
	h, err := newHasher(algo)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
