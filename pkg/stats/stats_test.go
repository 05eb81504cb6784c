package stats

import (
	"sync"
	"testing"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	if snap := r.Snapshot(); snap.MessagesScanned != 0 || snap.ScamsDetected != 0 {
		t.Errorf("fresh recorder = %+v", snap)
	}

	r.IncScanned()
	r.IncScanned()
	r.IncDetected()

	snap := r.Snapshot()
	if snap.MessagesScanned != 2 || snap.ScamsDetected != 1 {
		t.Errorf("snapshot = %+v, want 2 scanned / 1 detected", snap)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder()

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				r.IncScanned()
				if j%10 == 0 {
					r.IncDetected()
				}
			}
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	if snap.MessagesScanned != workers*perWorker {
		t.Errorf("scanned = %d, want %d", snap.MessagesScanned, workers*perWorker)
	}
	if snap.ScamsDetected != workers*(perWorker/10) {
		t.Errorf("detected = %d, want %d", snap.ScamsDetected, workers*(perWorker/10))
	}
}
