package tasks

import (
	"context"
	"log/slog"

	"feedreader/app/database"
	"feedreader/app/feed"
)

type RefreshFeedTask struct {
	Task
	dbFeed    database.Feed
	processor *feed.Processor
}

func NewRefreshFeedTask(dbFeed database.Feed, processor *feed.Processor) *RefreshFeedTask {
	return &RefreshFeedTask{
		Task:      NewTask(TaskTypeRefreshFeed, dbFeed.URL),
		dbFeed:    dbFeed,
		processor: processor,
	}
}

func (t *RefreshFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	inserted, err := t.processor.RefreshFeed(ctx, &t.dbFeed)
	if err != nil {
		return err
	}

	slog.Debug("Feed refresh finished", "url", t.dbFeed.URL,
		"new_entries", inserted, "duration", t.GetDuration().String())
	return nil
}
