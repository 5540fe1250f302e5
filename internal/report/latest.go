package report

import "sync"

// Latest holds the newest report result. Results from runs started before
// the one already stored are dropped, so a slow stale run cannot overwrite
// a newer one.
type Latest struct {
	mu     sync.Mutex
	result *Result
}

// Offer stores r if it is newer than the current result and reports
// whether it was kept.
func (l *Latest) Offer(r Result) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.result != nil && r.Seq <= l.result.Seq {
		return false
	}
	l.result = &r
	return true
}

// Get returns the newest result, if any.
func (l *Latest) Get() (Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.result == nil {
		return Result{}, false
	}
	return *l.result, true
}
