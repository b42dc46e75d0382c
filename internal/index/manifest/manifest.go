// Package manifest records the blake3 checksums of the artifacts a
// finalize run produces, so a consumer of a built index (the search CLI,
// or a future redistribution step) can verify the postings file, lexicon,
// and doc-length table it is about to open were not truncated or
// corrupted in transit.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rohmanhakim/crawlindex/pkg/fileutil"
	"github.com/rohmanhakim/crawlindex/pkg/hashutil"
)

// Entry is one checksummed artifact.
type Entry struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	Hash string `json:"blake3"`
}

// Manifest is the full set of artifacts a single finalize run produced.
type Manifest struct {
	Terms   int     `json:"terms"`
	Docs    int     `json:"docs"`
	Entries []Entry `json:"entries"`
}

// Build hashes each (kind, path) artifact with blake3 and assembles a
// Manifest. paths must already exist on disk.
func Build(terms, docs int, artifacts map[string]string) (*Manifest, error) {
	m := &Manifest{Terms: terms, Docs: docs}
	for _, kind := range sortedKeys(artifacts) {
		path := artifacts[kind]
		sum, err := hashutil.HashFile(path, hashutil.HashAlgoBLAKE3)
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, Entry{Kind: kind, Path: path, Hash: sum})
	}
	return m, nil
}

// Save writes m as indented JSON to path.
func Save(path string, m *Manifest) error {
	if err := fileutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a manifest previously written by Save.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Verify recomputes each entry's blake3 hash and reports whether it still
// matches what Build recorded.
func (m *Manifest) Verify() (bool, error) {
	for _, e := range m.Entries {
		sum, err := hashutil.HashFile(e.Path, hashutil.HashAlgoBLAKE3)
		if err != nil {
			return false, err
		}
		if sum != e.Hash {
			return false, nil
		}
	}
	return true, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
