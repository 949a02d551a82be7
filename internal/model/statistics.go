package model

import "sync/atomic"

// Statistics holds the running counters the CDC applier reports.
// Every field is backed by an atomic so it can be updated and read
// from different goroutines without a mutex; see Snapshot for what a
// read guarantees.
type Statistics struct {
	inserts uint64
	updates uint64
	deletes uint64
	errors  uint64
}

// StatisticsSnapshot is an immutable copy of Statistics at one instant.
type StatisticsSnapshot struct {
	Inserts uint64
	Updates uint64
	Deletes uint64
	Errors  uint64
}

func (s *Statistics) IncInserts() { atomic.AddUint64(&s.inserts, 1) }
func (s *Statistics) IncUpdates() { atomic.AddUint64(&s.updates, 1) }
func (s *Statistics) IncDeletes() { atomic.AddUint64(&s.deletes, 1) }
func (s *Statistics) IncErrors()  { atomic.AddUint64(&s.errors, 1) }

// Snapshot returns an atomic read of every counter. The four loads are
// not mutually atomic with each other, but each individual counter is
// exact at the instant it's read, which is sufficient for a reporting
// snapshot that is never used for correctness decisions.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		Inserts: atomic.LoadUint64(&s.inserts),
		Updates: atomic.LoadUint64(&s.updates),
		Deletes: atomic.LoadUint64(&s.deletes),
		Errors:  atomic.LoadUint64(&s.errors),
	}
}

// Reset zeroes every counter.
func (s *Statistics) Reset() {
	atomic.StoreUint64(&s.inserts, 0)
	atomic.StoreUint64(&s.updates, 0)
	atomic.StoreUint64(&s.deletes, 0)
	atomic.StoreUint64(&s.errors, 0)
}
