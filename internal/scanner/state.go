package scanner

import (
	"time"

	"github.com/zsiec/codescan/internal/decoder"
	"github.com/zsiec/codescan/internal/frame"
)

// Phase is the camera side of the scheduler state machine.
type Phase int

const (
	AwaitingStream Phase = iota
	Streaming
	Failed
)

func (p Phase) String() string {
	switch p {
	case Streaming:
		return "streaming"
	case Failed:
		return "failed"
	default:
		return "awaiting_stream"
	}
}

// state is everything the scan loop mutates. It is guarded by Scheduler.mu.
type state struct {
	phase   Phase
	device  frame.Size
	failure error

	lastScan    time.Time // zero until the first scan
	lastAttempt uint64    // id of the most recently issued attempt
	staleBelow  uint64    // attempts with id <= staleBelow predate the last Reset
	inFlight    int       // asynchronous linear decodes still running

	session  string
	detected *Detection
}

// Status is a point in time view of the scheduler.
type Status struct {
	Phase     string     `json:"phase"`
	Device    frame.Size `json:"device"`
	Output    frame.Size `json:"output"`
	Frozen    bool       `json:"frozen"`
	SessionID string     `json:"session_id"`
	Attempts  uint64     `json:"attempts"`
	InFlight  int        `json:"in_flight"`
	Detection *Detection `json:"detection,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// outcome is a resolved scan attempt.
type outcome struct {
	id    uint64
	hit   decoder.Hit
	ok    bool
	cost  time.Duration
	async bool
}
