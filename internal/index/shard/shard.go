// Package shard accumulates a streamed batch of documents into an
// in-memory term -> {docid: freq} map, the unit of work handed to a run
// writer before it is flushed to disk and discarded.
package shard

import "github.com/rohmanhakim/crawlindex/internal/index/parser"

// Index is an in-memory inverted index batch: term -> docid -> term
// frequency.
type Index map[string]map[uint32]uint32

// Build accumulates a batch of documents into a term -> {docid: freq}
// index. Each (term, docid) pair sums term frequency across every
// occurrence in the doc's token list.
func Build(docs []parser.Doc) Index {
	idx := make(Index)
	for _, doc := range docs {
		for _, term := range doc.Tokens {
			postings, ok := idx[term]
			if !ok {
				postings = make(map[uint32]uint32)
				idx[term] = postings
			}
			postings[doc.DocID]++
		}
	}
	return idx
}

// DocLengths returns the token count per document in the batch, the raw
// material doclen.Table is built from.
func DocLengths(docs []parser.Doc) map[uint32]uint32 {
	lengths := make(map[uint32]uint32, len(docs))
	for _, doc := range docs {
		lengths[doc.DocID] += uint32(len(doc.Tokens))
	}
	return lengths
}
