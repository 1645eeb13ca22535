package queue

import "sync/atomic"

// Sequencer provides monotonically increasing sequence numbers.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }

// Latest tracks the highest sequence number accepted so far. Accept reports whether seq
// is newer than anything accepted before, in which case it becomes the latest.
type Latest struct{ n atomic.Uint64 }

func (l *Latest) Accept(seq uint64) bool {
	for {
		cur := l.n.Load()
		if seq <= cur {
			return false
		}
		if l.n.CompareAndSwap(cur, seq) {
			return true
		}
	}
}

// Current returns the highest accepted sequence number.
func (l *Latest) Current() uint64 { return l.n.Load() }
