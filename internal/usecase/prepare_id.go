package usecase

import (
	"sync/atomic"
	"time"
)

// PrepareIDSource hands out merchant prepare ids. Ids are derived from the
// wall clock in milliseconds and are strictly increasing within a process,
// even when the clock stalls or steps back.
type PrepareIDSource struct {
	last atomic.Int64
	now  func() time.Time
}

func NewPrepareIDSource(now func() time.Time) *PrepareIDSource {
	if now == nil {
		now = time.Now
	}
	return &PrepareIDSource{now: now}
}

func (s *PrepareIDSource) Next() int64 {
	for {
		last := s.last.Load()
		next := s.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if s.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
