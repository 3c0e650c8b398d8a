package convert

import "sync/atomic"

// Sequencer hands out increasing request ids. Only the most recently issued
// id is current; results tagged with any older id are stale and must be
// dropped. Stale requests are not cancelled, their results are ignored.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a new request id, superseding every earlier one
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// Invalidate supersedes every issued id without starting a request
func (s *Sequencer) Invalidate() {
	s.latest.Add(1)
}

// IsLatest reports whether id is still the current request
func (s *Sequencer) IsLatest(id uint64) bool {
	return s.latest.Load() == id
}
