package harness

import "sync/atomic"

// seqCounter stamps completed repetitions with strictly increasing
// sequence numbers. The first call to next returns 1.
type seqCounter struct {
	seq atomic.Int64
}

func (c *seqCounter) next() int64 {
	return c.seq.Add(1)
}
