package services

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
)

// MaterialJob is an uploaded PDF waiting to be indexed.
type MaterialJob struct {
	CourseID string
	Source   string
	FilePath string
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	// Enqueue reports false when the queue is full or the worker has stopped.
	Enqueue(job MaterialJob) bool
}

type worker struct {
	indexer     CourseIndexer
	jobQueue    chan MaterialJob
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
	stopped     bool
	log         *zap.Logger
}

func NewWorker(indexer CourseIndexer, concurrency, queueSize int, log *zap.Logger) Worker {
	return &worker{
		indexer:     indexer,
		jobQueue:    make(chan MaterialJob, queueSize),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
		log:         log.Named("worker"),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.log.Info("worker started", zap.Int("concurrency", w.concurrency))
}

// Stop implements Worker. Jobs already being processed finish first; jobs
// still queued are dropped and their files removed.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.stopChan)
		w.mu.Unlock()
	})
	w.wg.Wait()

	for dropped := 0; ; dropped++ {
		select {
		case job := <-w.jobQueue:
			w.log.Warn("dropping queued material on shutdown",
				zap.String("course_id", job.CourseID),
				zap.String("source", job.Source),
			)
			if err := os.Remove(job.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.log.Error("failed to remove dropped material", zap.String("file", job.FilePath), zap.Error(err))
			}
		default:
			w.log.Info("worker stopped", zap.Int("dropped", dropped))
			return
		}
	}
}

// Enqueue implements Worker.
func (w *worker) Enqueue(job MaterialJob) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return false
	}

	select {
	case w.jobQueue <- job:
		w.log.Debug("material job enqueued", zap.String("course_id", job.CourseID), zap.String("source", job.Source))
		return true
	default:
		w.log.Warn("material queue full", zap.String("course_id", job.CourseID))
		return false
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case job := <-w.jobQueue:
			stored, err := w.indexer.IndexPDF(ctx, job.CourseID, job.Source, job.FilePath)
			if err != nil {
				log.Error("failed to index material",
					zap.String("course_id", job.CourseID),
					zap.String("source", job.Source),
					zap.Error(err),
				)
				continue
			}
			log.Info("material indexed",
				zap.String("course_id", job.CourseID),
				zap.String("source", job.Source),
				zap.Int("chunks", stored),
			)
		}
	}
}
