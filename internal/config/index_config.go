package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Codec identifies the on-disk posting block encoding.
type Codec string

const (
	CodecRaw     Codec = "raw"
	CodecVarByte Codec = "varbyte"
)

// IndexConfig holds the tunables shared by the index-build CLI pipeline:
// build-runs, parallel-merge, and finalize. Like Config, it is built through
// chainable With* builders and a validating Build step.
type IndexConfig struct {
	// BlockSize (B) is the number of postings per on-disk block.
	blockSize int
	// Codec selects the block encoding finalize writes.
	codec Codec
	// Fanin bounds how many runs a single merge-round group may combine.
	fanin int
	// Workers bounds the merge round's parallel group count.
	workers int
	// Rounds caps how many merge rounds parallel-merge performs before
	// stopping even if more than Fanin runs remain.
	rounds int
	// TmpDir is where intermediate merge-round runs are written.
	tmpDir string
	// BatchSize bounds how many documents build-runs accumulates per shard
	// before flushing a run to disk.
	batchSize int
}

// WithDefaultIndexConfig returns an IndexConfig seeded with spec defaults.
func WithDefaultIndexConfig() *IndexConfig {
	return &IndexConfig{
		blockSize: 128,
		codec:     CodecRaw,
		fanin:     12,
		workers:   4,
		rounds:    0,
		tmpDir:    "tmp",
		batchSize: 10000,
	}
}

func (c *IndexConfig) WithBlockSize(size int) *IndexConfig {
	c.blockSize = size
	return c
}

func (c *IndexConfig) WithCodec(codec Codec) *IndexConfig {
	c.codec = codec
	return c
}

func (c *IndexConfig) WithFanin(fanin int) *IndexConfig {
	c.fanin = fanin
	return c
}

func (c *IndexConfig) WithWorkers(workers int) *IndexConfig {
	c.workers = workers
	return c
}

func (c *IndexConfig) WithRounds(rounds int) *IndexConfig {
	c.rounds = rounds
	return c
}

func (c *IndexConfig) WithTmpDir(dir string) *IndexConfig {
	c.tmpDir = dir
	return c
}

func (c *IndexConfig) WithBatchSize(size int) *IndexConfig {
	c.batchSize = size
	return c
}

func (c *IndexConfig) Build() (IndexConfig, error) {
	if c.blockSize <= 0 {
		return IndexConfig{}, fmt.Errorf("%w: blockSize must be positive", ErrInvalidConfig)
	}
	if c.codec != CodecRaw && c.codec != CodecVarByte {
		return IndexConfig{}, fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.codec)
	}
	if c.fanin <= 1 {
		return IndexConfig{}, fmt.Errorf("%w: fanin must be greater than 1", ErrInvalidConfig)
	}
	if c.workers <= 0 {
		return IndexConfig{}, fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.batchSize <= 0 {
		return IndexConfig{}, fmt.Errorf("%w: batchSize must be positive", ErrInvalidConfig)
	}
	return *c, nil
}

type indexConfigDTO struct {
	BlockSize int    `json:"blockSize,omitempty"`
	Codec     Codec  `json:"codec,omitempty"`
	Fanin     int    `json:"fanin,omitempty"`
	Workers   int    `json:"workers,omitempty"`
	Rounds    int    `json:"rounds,omitempty"`
	TmpDir    string `json:"tmpDir,omitempty"`
	BatchSize int    `json:"batchSize,omitempty"`
}

// WithIndexConfigFile loads index-build tunables from a JSON file,
// overriding WithDefaultIndexConfig's defaults field-by-field wherever
// the file sets a non-zero value.
func WithIndexConfigFile(path string) (IndexConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return IndexConfig{}, fmt.Errorf("%w: %s", ErrFileDoesNotExist, err.Error())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return IndexConfig{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto indexConfigDTO
	if err := json.Unmarshal(content, &dto); err != nil {
		return IndexConfig{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	cfg := WithDefaultIndexConfig()
	if dto.BlockSize != 0 {
		cfg.WithBlockSize(dto.BlockSize)
	}
	if dto.Codec != "" {
		cfg.WithCodec(dto.Codec)
	}
	if dto.Fanin != 0 {
		cfg.WithFanin(dto.Fanin)
	}
	if dto.Workers != 0 {
		cfg.WithWorkers(dto.Workers)
	}
	if dto.Rounds != 0 {
		cfg.WithRounds(dto.Rounds)
	}
	if dto.TmpDir != "" {
		cfg.WithTmpDir(dto.TmpDir)
	}
	if dto.BatchSize != 0 {
		cfg.WithBatchSize(dto.BatchSize)
	}
	return cfg.Build()
}

func (c IndexConfig) BlockSize() int { return c.blockSize }
func (c IndexConfig) Codec() Codec   { return c.codec }
func (c IndexConfig) Fanin() int     { return c.fanin }
func (c IndexConfig) Workers() int   { return c.workers }
func (c IndexConfig) Rounds() int    { return c.rounds }
func (c IndexConfig) TmpDir() string { return c.tmpDir }
func (c IndexConfig) BatchSize() int { return c.batchSize }
