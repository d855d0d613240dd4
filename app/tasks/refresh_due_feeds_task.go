package tasks

import (
	"context"
	"log/slog"

	"feedreader/app/database"
	"feedreader/app/feed"
)

// RefreshDueFeedsTask refreshes one batch of due feeds through the
// processor's bulk path. Per-feed failures are logged and do not stop
// the batch, so the task itself only fails on cancellation.
type RefreshDueFeedsTask struct {
	Task
	feeds       []database.Feed
	processor   *feed.Processor
	concurrency int
}

func NewRefreshDueFeedsTask(feeds []database.Feed, processor *feed.Processor, concurrency int) *RefreshDueFeedsTask {
	return &RefreshDueFeedsTask{
		Task:        NewTask(TaskTypeRefreshDueFeeds, "due feeds"),
		feeds:       feeds,
		processor:   processor,
		concurrency: concurrency,
	}
}

func (t *RefreshDueFeedsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	refreshed := 0
	failed := 0
	newEntries := 0
	for result := range t.processor.BulkRefresh(ctx, t.feeds, t.concurrency) {
		if result.Err != nil {
			failed++
			slog.Warn("Feed refresh failed", "feed_id", result.FeedID, "error", result.Err)
			continue
		}
		refreshed++
		newEntries += result.NewEntries
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Debug("Due feed batch finished", "feeds", len(t.feeds), "refreshed", refreshed,
		"failed", failed, "new_entries", newEntries, "duration", t.GetDuration().String())
	return nil
}
