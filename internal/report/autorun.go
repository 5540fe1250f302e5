package report

import "sync"

const (
	AutoRunIdle AutoRunState = iota
	AutoRunParamsLoaded
	AutoRunTriggered
	AutoRunDone
)

type AutoRunState int

func (s AutoRunState) String() string {
	switch s {
	case AutoRunIdle:
		return "idle"
	case AutoRunParamsLoaded:
		return "params-loaded"
	case AutoRunTriggered:
		return "auto-run-triggered"
	case AutoRunDone:
		return "done"
	}
	return "unknown"
}

// AutoRun guards the report that runs by itself when a page opens with
// parameters already in its URL. It fires at most once.
type AutoRun struct {
	mu    sync.Mutex
	state AutoRunState
}

func (a *AutoRun) State() AutoRunState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Load records whether the page arrived with report parameters. Without
// parameters there is nothing to run and the machine finishes.
func (a *AutoRun) Load(hasParams bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AutoRunIdle {
		return
	}
	if hasParams {
		a.state = AutoRunParamsLoaded
	} else {
		a.state = AutoRunDone
	}
}

// Trigger returns true exactly once, when parameters were loaded and the
// automatic run has not happened yet.
func (a *AutoRun) Trigger() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AutoRunParamsLoaded {
		return false
	}
	a.state = AutoRunTriggered
	return true
}

// Finish marks the automatic run complete.
func (a *AutoRun) Finish() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = AutoRunDone
}
