// Package stats tracks the user-facing counters consumed by the UI
// collaborator. Counters are atomic: analyses run concurrently and a lost
// increment silently corrupts a user-visible metric.
package stats

import "sync/atomic"

// Snapshot is a point-in-time read of the counters.
type Snapshot struct {
	MessagesScanned int64 `json:"messagesScanned"`
	ScamsDetected   int64 `json:"scamsDetected"`
}

// Recorder holds monotonically increasing scan counters.
type Recorder struct {
	scanned  atomic.Int64
	detected atomic.Int64
}

// NewRecorder creates a zeroed recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// IncScanned counts one message that reached the remote stage.
func (r *Recorder) IncScanned() {
	r.scanned.Add(1)
}

// IncDetected counts one autonomous engagement.
func (r *Recorder) IncDetected() {
	r.detected.Add(1)
}

// Snapshot returns the current counter values.
func (r *Recorder) Snapshot() Snapshot {
	return Snapshot{
		MessagesScanned: r.scanned.Load(),
		ScamsDetected:   r.detected.Load(),
	}
}
