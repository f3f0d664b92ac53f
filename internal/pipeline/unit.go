package pipeline

import (
	"sync"
	"time"
)

// Operation selects which pipeline a WorkUnit runs.
type Operation string

const (
	OpSearch    Operation = "search"
	OpSummarize Operation = "summarize"
)

// Status is the state of a WorkUnit. Terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Unit is one bounded execution of the processing pipeline for one
// request. It is created at request entry, owned by that request's
// goroutine, and never persisted or shared across requests.
type Unit struct {
	mu sync.Mutex

	ID        string
	Operation Operation
	Filename  string
	Query     string
	CreatedAt time.Time
	Deadline  time.Time

	status Status
	data   []byte
}

// NewUnit builds a pending unit. The unit borrows data for the duration
// of one execution; callers must not mutate it while the unit runs.
func NewUnit(id string, op Operation, filename, query string, data []byte) *Unit {
	return &Unit{
		ID:        id,
		Operation: op,
		Filename:  filename,
		Query:     query,
		CreatedAt: time.Now(),
		status:    StatusPending,
		data:      data,
	}
}

// Status returns the unit's current state.
func (u *Unit) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

// setStatus transitions the unit. Transitions out of a terminal state
// are ignored, so a unit can never un-finish.
func (u *Unit) setStatus(next Status) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.status.Terminal() {
		return
	}
	u.status = next
}

// Data returns the borrowed input bytes.
func (u *Unit) Data() []byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.data
}

// release drops the input reference once execution is over.
func (u *Unit) release() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.data = nil
}
