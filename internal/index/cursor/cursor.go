// Package cursor provides block-aware iteration over a single term's
// postings, the primitive the DAAT query executor drives to walk several
// terms' posting lists in lockstep.
package cursor

import (
	"sort"

	"github.com/rohmanhakim/crawlindex/internal/index/postings"
)

// Cursor steps through one term's postings one docid at a time, loading
// blocks from a ListReader lazily as it crosses block boundaries.
type Cursor struct {
	reader *postings.ListReader
	entry  postings.LexiconEntry
	term   string

	blockIndex int
	block      postings.DecodedBlock
	j          int
	exhausted  bool
}

// New positions a cursor at the first posting for term.
func New(reader *postings.ListReader, term string, entry postings.LexiconEntry) (*Cursor, error) {
	c := &Cursor{reader: reader, entry: entry, term: term, blockIndex: -1}
	if entry.DF == 0 {
		c.exhausted = true
		return c, nil
	}
	block, found, err := reader.LoadBlock(entry, 0)
	if err != nil {
		return nil, err
	}
	if !found || len(block.DocIDs) == 0 {
		c.exhausted = true
		return c, nil
	}
	c.blockIndex = 0
	c.block = block
	return c, nil
}

// Term returns the term this cursor walks postings for.
func (c *Cursor) Term() string { return c.term }

// DF returns the term's total document frequency.
func (c *Cursor) DF() int { return c.entry.DF }

// Exhausted reports whether the cursor has walked past its last posting.
func (c *Cursor) Exhausted() bool { return c.exhausted }

// DocID returns the docid at the cursor's current position, or (0, false)
// once exhausted.
func (c *Cursor) DocID() (uint32, bool) {
	if c.exhausted || c.j >= len(c.block.DocIDs) {
		return 0, false
	}
	return c.block.DocIDs[c.j], true
}

// Freq returns the term frequency at the cursor's current position.
// Only valid when DocID reports ok.
func (c *Cursor) Freq() uint32 {
	if c.exhausted || c.j >= len(c.block.Freqs) {
		return 0
	}
	return c.block.Freqs[c.j]
}

// Advance moves to the next posting and returns its docid, or (0, false)
// once exhausted.
func (c *Cursor) Advance() (uint32, bool) {
	if c.exhausted {
		return 0, false
	}
	c.j++
	if c.j < len(c.block.DocIDs) {
		return c.block.DocIDs[c.j], true
	}
	if !c.loadBlock(c.blockIndex + 1) {
		c.exhausted = true
		return 0, false
	}
	return c.block.DocIDs[c.j], true
}

// NextGE advances to the first posting with docid >= target and returns
// it, or (0, false) if no such posting exists.
func (c *Cursor) NextGE(target uint32) (uint32, bool) {
	if c.exhausted {
		return 0, false
	}

	if target <= c.block.LastDocID {
		lo := c.j + sort.Search(len(c.block.DocIDs)-c.j, func(i int) bool {
			return c.block.DocIDs[c.j+i] >= target
		})
		if lo < len(c.block.DocIDs) {
			c.j = lo
			return c.block.DocIDs[c.j], true
		}
		if !c.loadBlock(c.blockIndex + 1) {
			c.exhausted = true
			return 0, false
		}
		if target <= c.block.LastDocID {
			j := sort.Search(len(c.block.DocIDs), func(i int) bool {
				return c.block.DocIDs[i] >= target
			})
			if j < len(c.block.DocIDs) {
				c.j = j
				return c.block.DocIDs[c.j], true
			}
		}
	}

	block, idx, found, err := c.reader.SeekBlockGEIndexed(c.entry, target)
	if err != nil || !found {
		c.exhausted = true
		return 0, false
	}
	c.blockIndex = idx
	c.block = block
	c.j = sort.Search(len(c.block.DocIDs), func(i int) bool {
		return c.block.DocIDs[i] >= target
	})
	if c.j >= len(c.block.DocIDs) {
		if !c.loadBlock(c.blockIndex + 1) {
			c.exhausted = true
			return 0, false
		}
		c.j = 0
	}
	return c.block.DocIDs[c.j], true
}

// loadBlock loads the block at absolute index bidx and resets the
// in-block cursor to its start. Returns false (and leaves the cursor
// untouched) if bidx is past the term's last block.
func (c *Cursor) loadBlock(bidx int) bool {
	block, found, err := c.reader.LoadBlock(c.entry, bidx)
	if err != nil || !found {
		return false
	}
	c.blockIndex = bidx
	c.block = block
	c.j = 0
	return true
}
