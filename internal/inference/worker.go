package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"autonomous-car/internal/logger"
)

// VisionModel is a remote model that answers a prompt about one image.
type VisionModel interface {
	Generate(ctx context.Context, png []byte, prompt string) (string, error)
}

// WorkerConfig controls the request cadence.
type WorkerConfig struct {
	// Interval is the pause between requests.
	Interval time.Duration
	// FastInterval replaces Interval while the mailbox is flagged urgent.
	FastInterval time.Duration
	// CallTimeout bounds each model request.
	CallTimeout time.Duration
	MaxSpeedKmh float64
}

// Worker polls the mailbox for frames, asks the model for a command and
// publishes the answer back. Failures are logged and the previous result is
// kept.
type Worker struct {
	model   VisionModel
	mailbox *Mailbox
	cfg     WorkerConfig
	logger  *logger.Logger

	stopped  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	calls    atomic.Int64
	failures atomic.Int64
}

func NewWorker(model VisionModel, mailbox *Mailbox, cfg WorkerConfig, l *logger.Logger) *Worker {
	if cfg.FastInterval <= 0 || cfg.FastInterval > cfg.Interval {
		cfg.FastInterval = cfg.Interval
	}
	return &Worker{
		model:   model,
		mailbox: mailbox,
		cfg:     cfg,
		logger:  l.WithTag("inference"),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop asks the worker to exit after the current iteration. A request already
// in flight runs to completion or to its own timeout.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		close(w.stopCh)
	})
}

// Wait blocks until the goroutine has exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Stats returns the number of model calls made and how many failed.
func (w *Worker) Stats() (calls, failures int64) {
	return w.calls.Load(), w.failures.Load()
}

func (w *Worker) run() {
	defer w.wg.Done()
	w.logger.Infof("Worker started (interval %s, fast %s)", w.cfg.Interval, w.cfg.FastInterval)

	for !w.stopped.Load() {
		if err := w.iterate(); err != nil {
			w.failures.Inc()
			w.logger.Warnf("Request failed: %v", err)
		}

		interval := w.cfg.Interval
		if w.mailbox.Urgent() {
			interval = w.cfg.FastInterval
		}
		select {
		case <-w.stopCh:
		case <-time.After(interval):
		}
	}
	w.logger.Infof("Worker stopped")
}

// iterate performs at most one model request.
func (w *Worker) iterate() error {
	snap := w.mailbox.Latest()
	if snap == nil || !snap.Frame.Valid() {
		return nil
	}

	img, err := EncodePNG(snap.Frame)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.CallTimeout)
	defer cancel()

	w.calls.Inc()
	text, err := w.model.Generate(ctx, img, BuildPrompt(snap.SpeedKmh, w.cfg.MaxSpeedKmh))
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	res, err := ParseReply(text)
	if err != nil {
		return err
	}

	w.mailbox.PublishResult(res)
	w.logger.Debugf("Model proposes steering=%.3f speed=%.1f", res.Steering, res.SpeedKmh)
	return nil
}
