package postings

import (
	"os"
	"sort"

	"github.com/rohmanhakim/crawlindex/internal/config"
)

// DecodedBlock is one posting block after codec decoding, ready for DAAT
// consumption.
type DecodedBlock struct {
	LastDocID uint32
	DocIDs    []uint32
	Freqs     []uint32
}

// ListReader reads postings from the blocked binary file a ListWriter
// produced. Block payloads decode with the codec recorded on each
// lexicon entry; codec is only the fallback for legacy entries that
// never recorded one.
type ListReader struct {
	path  string
	f     *os.File
	codec config.Codec
}

// codecFor resolves the codec entry's blocks were written with.
func (r *ListReader) codecFor(entry LexiconEntry) config.Codec {
	if entry.Codec != "" {
		return entry.Codec
	}
	return r.codec
}

func NewListReader(path string, codec config.Codec) (*ListReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PostingsError{Message: err.Error(), Cause: ErrCauseOpenFailure}
	}
	return &ListReader{path: path, f: f, codec: codec}, nil
}

func (r *ListReader) Close() error {
	return r.f.Close()
}

// readBlock reads and decodes the block starting at offset, using
// prevLastDocID as the varbyte gap-chain baseline. When want is non-nil
// (the directory fast path), the on-disk header is cross-checked against
// it; a mismatch means the postings file and lexicon have drifted out of
// sync and is always fatal corruption.
func (r *ListReader) readBlock(codec config.Codec, offset int64, want *BlockMeta, prevLastDocID uint32) (DecodedBlock, int64, error) {
	hdr := make([]byte, blockHeaderSize)
	if _, err := r.f.ReadAt(hdr, offset); err != nil {
		return DecodedBlock{}, 0, &PostingsError{Message: err.Error(), Cause: ErrCauseIndexCorruption}
	}
	n := int(getU32(hdr[0:]))
	lastDocID := getU32(hdr[4:])
	docBytesLen := int(getU32(hdr[8:]))
	freqBytesLen := int(getU32(hdr[12:]))

	if want != nil && (n != want.N || lastDocID != want.LastDocID || docBytesLen != want.DocBytes || freqBytesLen != want.FreqBytes) {
		return DecodedBlock{}, 0, &PostingsError{Message: "block header disagrees with lexicon directory", Cause: ErrCauseIndexCorruption}
	}

	payload := make([]byte, docBytesLen+freqBytesLen)
	if _, err := r.f.ReadAt(payload, offset+blockHeaderSize); err != nil {
		return DecodedBlock{}, 0, &PostingsError{Message: err.Error(), Cause: ErrCauseIndexCorruption}
	}

	docids := decodeDocIDs(codec, payload[:docBytesLen], n, prevLastDocID)
	freqs := decodeFreqs(codec, payload[docBytesLen:], n)
	nextOffset := offset + blockHeaderSize + int64(docBytesLen) + int64(freqBytesLen)
	return DecodedBlock{LastDocID: lastDocID, DocIDs: docids, Freqs: freqs}, nextOffset, nil
}

// forEachBlock visits entry's blocks in order, using the directory fast
// path when present and otherwise falling back to a linear scan from
// entry.Offset. It stops early if visit returns false, and propagates any
// read/decode error from visit's caller.
func (r *ListReader) forEachBlock(entry LexiconEntry, visit func(DecodedBlock) bool) error {
	codec := r.codecFor(entry)
	prevLastDocID := uint32(0)

	if len(entry.Blocks) > 0 {
		for i := range entry.Blocks {
			meta := entry.Blocks[i]
			block, _, err := r.readBlock(codec, meta.Offset, &meta, prevLastDocID)
			if err != nil {
				return err
			}
			prevLastDocID = meta.LastDocID
			if !visit(block) {
				return nil
			}
		}
		return nil
	}

	offset := entry.Offset
	remaining := entry.DF
	for remaining > 0 {
		block, nextOffset, err := r.readBlock(codec, offset, nil, prevLastDocID)
		if err != nil {
			return err
		}
		remaining -= len(block.DocIDs)
		prevLastDocID = block.LastDocID
		offset = nextOffset
		if !visit(block) {
			return nil
		}
	}
	return nil
}

// ReadPostings reads every block for entry and returns the concatenated
// (docids, freqs) pair.
func (r *ListReader) ReadPostings(entry LexiconEntry) ([]uint32, []uint32, error) {
	var docids, freqs []uint32
	err := r.forEachBlock(entry, func(block DecodedBlock) bool {
		docids = append(docids, block.DocIDs...)
		freqs = append(freqs, block.Freqs...)
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	return docids, freqs, nil
}

// IterBlocks returns entry's blocks one at a time in order, paired with an
// errFn to check once the sequence has been consumed.
func (r *ListReader) IterBlocks(entry LexiconEntry) (seq func(yield func(DecodedBlock) bool), errFn func() error) {
	var iterErr error
	seq = func(yield func(DecodedBlock) bool) {
		iterErr = r.forEachBlock(entry, yield)
	}
	errFn = func() error { return iterErr }
	return seq, errFn
}

// LoadBlock loads the block at absolute index bidx (0-based) for entry.
// found is false if bidx is out of range.
func (r *ListReader) LoadBlock(entry LexiconEntry, bidx int) (block DecodedBlock, found bool, err error) {
	if bidx < 0 {
		return DecodedBlock{}, false, nil
	}
	if len(entry.Blocks) > 0 {
		if bidx >= len(entry.Blocks) {
			return DecodedBlock{}, false, nil
		}
		meta := entry.Blocks[bidx]
		prevLastDocID := uint32(0)
		if bidx > 0 {
			prevLastDocID = entry.Blocks[bidx-1].LastDocID
		}
		b, _, err := r.readBlock(r.codecFor(entry), meta.Offset, &meta, prevLastDocID)
		if err != nil {
			return DecodedBlock{}, false, err
		}
		return b, true, nil
	}

	idx := -1
	err = r.forEachBlock(entry, func(b DecodedBlock) bool {
		idx++
		if idx == bidx {
			block, found = b, true
			return false
		}
		return true
	})
	if err != nil {
		return DecodedBlock{}, false, err
	}
	return block, found, nil
}

// SeekBlockGE locates the first block whose LastDocID >= targetDocID and
// returns its decoded contents. found is false if no such block exists
// (targetDocID is past the term's last posting).
func (r *ListReader) SeekBlockGE(entry LexiconEntry, targetDocID uint32) (block DecodedBlock, found bool, err error) {
	block, _, found, err = r.SeekBlockGEIndexed(entry, targetDocID)
	return block, found, err
}

// SeekBlockGEIndexed behaves like SeekBlockGE but also reports the
// 0-based index of the block found, so a cursor can resume sequential
// Advance calls from the right place after a seek.
func (r *ListReader) SeekBlockGEIndexed(entry LexiconEntry, targetDocID uint32) (block DecodedBlock, index int, found bool, err error) {
	if len(entry.Blocks) > 0 {
		idx := sort.Search(len(entry.Blocks), func(i int) bool {
			return entry.Blocks[i].LastDocID >= targetDocID
		})
		if idx == len(entry.Blocks) {
			return DecodedBlock{}, -1, false, nil
		}
		meta := entry.Blocks[idx]
		prevLastDocID := uint32(0)
		if idx > 0 {
			prevLastDocID = entry.Blocks[idx-1].LastDocID
		}
		b, _, err := r.readBlock(r.codecFor(entry), meta.Offset, &meta, prevLastDocID)
		if err != nil {
			return DecodedBlock{}, -1, false, err
		}
		return b, idx, true, nil
	}

	idx := -1
	err = r.forEachBlock(entry, func(b DecodedBlock) bool {
		idx++
		if b.LastDocID >= targetDocID {
			block, index, found = b, idx, true
			return false
		}
		return true
	})
	if err != nil {
		return DecodedBlock{}, -1, false, err
	}
	if !found {
		return DecodedBlock{}, -1, false, nil
	}
	return block, index, true, nil
}
