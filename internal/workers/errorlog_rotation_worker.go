package workers

import (
	"context"
	"log"
	"time"
)

// Rotator is the part of errorlog.Log the worker drives.
type Rotator interface {
	Rotate(maxBytes int64, keep int) (bool, error)
}

// ErrorLogRotationWorker compresses error.log once it grows past MaxBytes and
// keeps the newest Keep archives.
type ErrorLogRotationWorker struct {
	Log           Rotator
	MaxBytes      int64         // default: 5 MiB
	Keep          int           // default: 5
	CheckInterval time.Duration // default: 10m
}

// Start runs the rotation loop until ctx is cancelled.
func (w *ErrorLogRotationWorker) Start(ctx context.Context) {
	if w.MaxBytes <= 0 {
		w.MaxBytes = 5 << 20
	}
	if w.Keep <= 0 {
		w.Keep = 5
	}
	if w.CheckInterval <= 0 {
		w.CheckInterval = 10 * time.Minute
	}

	ticker := time.NewTicker(w.CheckInterval)
	defer ticker.Stop()

	log.Printf("[ErrorLogRotationWorker] started (maxBytes=%d, keep=%d, interval=%s)", w.MaxBytes, w.Keep, w.CheckInterval)

	w.rotate()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[ErrorLogRotationWorker] stopped")
			return
		case <-ticker.C:
			w.rotate()
		}
	}
}

func (w *ErrorLogRotationWorker) rotate() {
	rotated, err := w.Log.Rotate(w.MaxBytes, w.Keep)
	if err != nil {
		log.Printf("[ErrorLogRotationWorker] error: %v", err)
		return
	}
	if rotated {
		log.Printf("[ErrorLogRotationWorker] rotated error log")
	}
}
