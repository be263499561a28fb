package transfer

import "errors"

// Chunk is one slice of the payload, produced in offset order.
type Chunk struct {
	SequenceNo int
	Offset     int
	Data       []byte // aliases the payload, valid until the payload is reused
}

// Chunker walks a payload in fixed-size steps. Every chunk carries exactly
// the configured size except the last, which carries the remainder.
type Chunker struct {
	payload []byte
	size    int
	offset  int
	seq     int
}

// NewChunker returns a chunker over payload. size must be positive.
func NewChunker(payload []byte, size int) (*Chunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	return &Chunker{payload: payload, size: size}, nil
}

// Next yields the following chunk, or ok == false once the payload is
// exhausted. An empty payload yields no chunks.
func (c *Chunker) Next() (chunk Chunk, ok bool) {
	if c.offset >= len(c.payload) {
		return Chunk{}, false
	}
	end := c.offset + c.size
	if end > len(c.payload) {
		end = len(c.payload)
	}
	chunk = Chunk{
		SequenceNo: c.seq,
		Offset:     c.offset,
		Data:       c.payload[c.offset:end],
	}
	c.offset = end
	c.seq++
	return chunk, true
}

// Count returns how many chunks the payload splits into.
func (c *Chunker) Count() int {
	return ChunkCount(len(c.payload), c.size)
}

// ChunkCount is ceil(total/size) for a positive size.
func ChunkCount(total, size int) int {
	return (total + size - 1) / size
}
