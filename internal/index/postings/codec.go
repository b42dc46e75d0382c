package postings

import "github.com/rohmanhakim/crawlindex/internal/config"

// encodeRawDocIDs writes docids as a flat little-endian uint32 array,
// untouched by delta coding. Used by the raw codec.
func encodeRawDocIDs(docids []uint32) []byte {
	buf := make([]byte, 4*len(docids))
	for i, d := range docids {
		putU32(buf[i*4:], d)
	}
	return buf
}

func decodeRawDocIDs(data []byte, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = getU32(data[i*4:])
	}
	return out
}

func encodeRawFreqs(freqs []uint32) []byte {
	return encodeRawDocIDs(freqs)
}

func decodeRawFreqs(data []byte, n int) []uint32 {
	return decodeRawDocIDs(data, n)
}

// encodeVarByteDocIDs gap-encodes docids relative to the previous docid,
// using prevLastDocID as the baseline for the block's first entry (0 for
// the very first block of a term). Each gap is then Variable-Byte encoded.
func encodeVarByteDocIDs(docids []uint32, prevLastDocID uint32) []byte {
	buf := make([]byte, 0, 4*len(docids))
	prev := prevLastDocID
	for _, d := range docids {
		gap := d - prev
		buf = appendVarByte(buf, gap)
		prev = d
	}
	return buf
}

func decodeVarByteDocIDs(data []byte, n int, prevLastDocID uint32) []uint32 {
	out := make([]uint32, n)
	prev := prevLastDocID
	pos := 0
	for i := 0; i < n; i++ {
		gap, next := readVarByte(data, pos)
		pos = next
		prev += gap
		out[i] = prev
	}
	return out
}

// encodeVarByteFreqs Variable-Byte encodes each frequency directly (no
// gap coding: frequencies have no monotonic ordering to exploit).
func encodeVarByteFreqs(freqs []uint32) []byte {
	buf := make([]byte, 0, 4*len(freqs))
	for _, f := range freqs {
		buf = appendVarByte(buf, f)
	}
	return buf
}

func decodeVarByteFreqs(data []byte, n int) []uint32 {
	out := make([]uint32, n)
	pos := 0
	for i := 0; i < n; i++ {
		v, next := readVarByte(data, pos)
		pos = next
		out[i] = v
	}
	return out
}

// appendVarByte appends x in the classic IR Variable Byte encoding: 7
// payload bits per byte, most significant byte first, with the
// termination marker (high bit set) on the LAST byte of the integer
// rather than on every non-final byte.
func appendVarByte(buf []byte, x uint32) []byte {
	var tmp [5]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte(x & 0x7f)
		x >>= 7
		if x == 0 {
			break
		}
	}
	tmp[len(tmp)-1] |= 0x80
	return append(buf, tmp[i:]...)
}

// readVarByte decodes one Variable Byte integer starting at pos, returning
// the value and the position just past its terminating (high-bit-set) byte.
func readVarByte(data []byte, pos int) (uint32, int) {
	var x uint32
	for {
		b := data[pos]
		pos++
		x = (x << 7) | uint32(b&0x7f)
		if b&0x80 != 0 {
			break
		}
	}
	return x, pos
}

func encodeDocIDs(codec config.Codec, docids []uint32, prevLastDocID uint32) []byte {
	if codec == config.CodecVarByte {
		return encodeVarByteDocIDs(docids, prevLastDocID)
	}
	return encodeRawDocIDs(docids)
}

func decodeDocIDs(codec config.Codec, data []byte, n int, prevLastDocID uint32) []uint32 {
	if codec == config.CodecVarByte {
		return decodeVarByteDocIDs(data, n, prevLastDocID)
	}
	return decodeRawDocIDs(data, n)
}

func encodeFreqs(codec config.Codec, freqs []uint32) []byte {
	if codec == config.CodecVarByte {
		return encodeVarByteFreqs(freqs)
	}
	return encodeRawFreqs(freqs)
}

func decodeFreqs(codec config.Codec, data []byte, n int) []uint32 {
	if codec == config.CodecVarByte {
		return decodeVarByteFreqs(data, n)
	}
	return decodeRawFreqs(data, n)
}

func putU32(buf []byte, x uint32) {
	buf[0] = byte(x)
	buf[1] = byte(x >> 8)
	buf[2] = byte(x >> 16)
	buf[3] = byte(x >> 24)
}

func getU32(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}
