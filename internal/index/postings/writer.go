package postings

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"

	"github.com/rohmanhakim/crawlindex/internal/config"
)

const blockHeaderSize = 16 // n, last_docid, doc_bytes_len, freq_bytes_len, each u32

// ListWriter writes term postings into the final blocked binary postings
// file, one term at a time via AddTerm, returning the LexiconEntry the
// caller must pass to the Lexicon.
type ListWriter struct {
	path      string
	f         *os.File
	w         *bufio.Writer
	offset    int64
	blockSize int
	codec     config.Codec
}

func NewListWriter(path string, blockSize int, codec config.Codec) (*ListWriter, error) {
	if codec != config.CodecRaw && codec != config.CodecVarByte {
		return nil, &PostingsError{Message: string(codec), Cause: ErrCauseUnknownCodec}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &PostingsError{Message: err.Error(), Cause: ErrCauseCreateFailure}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &PostingsError{Message: err.Error(), Cause: ErrCauseCreateFailure}
	}
	return &ListWriter{
		path:      path,
		f:         f,
		w:         bufio.NewWriterSize(f, 1<<20),
		blockSize: blockSize,
		codec:     codec,
	}, nil
}

// AddTerm writes term's full postings map as one or more blocks and
// returns the LexiconEntry describing where they landed.
func (w *ListWriter) AddTerm(term string, postingsMap map[uint32]uint32) (LexiconEntry, error) {
	docids := make([]uint32, 0, len(postingsMap))
	for d := range postingsMap {
		docids = append(docids, d)
	}
	sort.Slice(docids, func(i, j int) bool { return docids[i] < docids[j] })

	startOffset := w.offset
	var blocks []BlockMeta
	var prevLastDocID uint32

	for i := 0; i < len(docids); i += w.blockSize {
		end := i + w.blockSize
		if end > len(docids) {
			end = len(docids)
		}
		chunkDocIDs := docids[i:end]
		chunkFreqs := make([]uint32, len(chunkDocIDs))
		for j, d := range chunkDocIDs {
			chunkFreqs[j] = postingsMap[d]
		}
		n := len(chunkDocIDs)
		lastDocID := chunkDocIDs[n-1]

		docBytes := encodeDocIDs(w.codec, chunkDocIDs, prevLastDocID)
		freqBytes := encodeFreqs(w.codec, chunkFreqs)

		blockOffset := w.offset
		if err := w.writeBlockHeader(n, lastDocID, len(docBytes), len(freqBytes)); err != nil {
			return LexiconEntry{}, err
		}
		if err := w.writeBytes(docBytes); err != nil {
			return LexiconEntry{}, err
		}
		if err := w.writeBytes(freqBytes); err != nil {
			return LexiconEntry{}, err
		}

		blocks = append(blocks, BlockMeta{
			Offset:    blockOffset,
			N:         n,
			LastDocID: lastDocID,
			DocBytes:  len(docBytes),
			FreqBytes: len(freqBytes),
		})
		prevLastDocID = lastDocID
	}

	return LexiconEntry{
		Offset:  startOffset,
		DF:      len(docids),
		NBlocks: len(blocks),
		Codec:   w.codec,
		Blocks:  blocks,
	}, nil
}

func (w *ListWriter) writeBlockHeader(n int, lastDocID uint32, docBytesLen, freqBytesLen int) error {
	var hdr [blockHeaderSize]byte
	putU32(hdr[0:], uint32(n))
	putU32(hdr[4:], lastDocID)
	putU32(hdr[8:], uint32(docBytesLen))
	putU32(hdr[12:], uint32(freqBytesLen))
	return w.writeBytes(hdr[:])
}

func (w *ListWriter) writeBytes(b []byte) error {
	n, err := w.w.Write(b)
	w.offset += int64(n)
	if err != nil {
		return &PostingsError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	return nil
}

func (w *ListWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return &PostingsError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	if err := w.f.Close(); err != nil {
		return &PostingsError{Message: err.Error(), Cause: ErrCauseWriteFailure}
	}
	return nil
}
