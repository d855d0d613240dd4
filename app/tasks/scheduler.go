package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feedreader/app/cfg"
	"feedreader/app/database"
	"feedreader/app/feed"
	"feedreader/app/fetch"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// dueFeedBatchSize bounds how many due feeds one scheduler tick pulls.
const dueFeedBatchSize = 100

type Scheduler struct {
	processor   *feed.Processor
	feedRepo    database.FeedRepository
	entryRepo   database.EntryRepository
	client      *fetch.Client
	extractor   *feed.ContentExtractor
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(processor *feed.Processor, feedRepo database.FeedRepository,
	entryRepo database.EntryRepository, client *fetch.Client,
	extractor *feed.ContentExtractor) TaskSchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		processor:   processor,
		feedRepo:    feedRepo,
		entryRepo:   entryRepo,
		client:      client,
		extractor:   extractor,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueDueTasks() {
	feeds, err := s.feedRepo.GetFeedsDueForRefresh(dueFeedBatchSize)
	if err != nil {
		slog.Error("Failed to get due feeds", "error", err)
		return
	}

	if len(feeds) > 0 {
		slog.Debug("Scheduling feed refresh batch", "count", len(feeds))
		task := NewRefreshDueFeedsTask(feeds, s.processor, s.workerCount)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue RefreshDueFeedsTask", "feeds", len(feeds), "error", err)
		}
	}

	extractTask := NewExtractContentTask(s.entryRepo, s.client, s.extractor)
	if err := s.EnqueueTask(extractTask); err != nil {
		slog.Warn("Failed to enqueue ExtractContentTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID,
		"type", string(task.GetType()), "id", task.GetID(),
		"retry_count", task.GetRetryCount(), "error", err)

	if !isRetryable(err) {
		slog.Debug("Task error is not retryable", "type", string(task.GetType()), "id", task.GetID())
		return
	}

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()),
			"id", task.GetID(), "retry_count", task.GetRetryCount(),
			"max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()),
		"label", task.GetLabel(), "retry_count", task.GetRetryCount(),
		"max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	// The retry goroutine joins the WaitGroup so Stop cannot close the
	// queue while a re-enqueue is still in flight.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry",
				"type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry",
					"type", string(task.GetType()), "id", task.GetID(),
					"retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// isRetryable limits retries to transient fetch failures: network
// errors, 5xx answers and rate limiting. Parse failures and client
// errors will not improve on a second attempt.
func isRetryable(err error) bool {
	var fetchErr *fetch.Error
	return errors.As(err, &fetchErr) && fetchErr.Retryable()
}
