package tasks

import (
	"context"
	"errors"
	"log/slog"

	"feedreader/app/crawler"
	"feedreader/app/database"
	"feedreader/app/feed"
)

type DiscoverFeedTask struct {
	Task
	seedURL   string
	processor *feed.Processor
}

func NewDiscoverFeedTask(seedURL string, processor *feed.Processor) *DiscoverFeedTask {
	return &DiscoverFeedTask{
		Task:      NewTask(TaskTypeDiscoverFeed, seedURL),
		seedURL:   seedURL,
		processor: processor,
	}
}

func (t *DiscoverFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	discovered, inserted, err := t.processor.DiscoverFeed(ctx, t.seedURL)

	if errors.Is(err, database.ErrDuplicateFeed) {
		slog.Debug("Feed already subscribed", "seed", t.seedURL, "url", discovered.URL)
		return nil
	}

	var notFound *crawler.NoFeedFoundError
	if errors.As(err, &notFound) {
		slog.Warn("No feed found for seed", "seed", t.seedURL)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("Seed discovered", "seed", t.seedURL, "url", discovered.URL,
		"entries", inserted, "duration", t.GetDuration().String())
	return nil
}
