package tasks

import (
	"context"
	"log/slog"

	"feedreader/app/database"
	"feedreader/app/feed"
	"feedreader/app/fetch"
)

// extractBatchSize bounds how many entries one task run processes.
const extractBatchSize = 20

// ExtractContentTask walks entries whose content was promoted from a
// bare summary and replaces it with the readable body of their page.
// Entries whose page cannot be fetched or extracted fall back to the
// promoted summary for good.
type ExtractContentTask struct {
	Task
	entryRepo database.EntryRepository
	client    *fetch.Client
	extractor *feed.ContentExtractor
}

func NewExtractContentTask(entryRepo database.EntryRepository, client *fetch.Client,
	extractor *feed.ContentExtractor) *ExtractContentTask {
	return &ExtractContentTask{
		Task:      NewTask(TaskTypeExtractContent, "pending entries"),
		entryRepo: entryRepo,
		client:    client,
		extractor: extractor,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	entries, err := t.entryRepo.GetEntriesForExtraction(extractBatchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	successCount := 0
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.extractEntry(ctx, entry); err != nil {
			slog.Debug("Content extraction failed, keeping summary",
				"entry_id", entry.ID, "url", entry.Link, "error", err)
			if clearErr := t.entryRepo.ClearExtractionFlag(entry.ID); clearErr != nil {
				slog.Warn("Failed to clear extraction flag", "entry_id", entry.ID, "error", clearErr)
			}
			continue
		}
		successCount++
	}

	slog.Debug("Content extraction batch finished",
		"total", len(entries), "extracted", successCount,
		"duration", t.GetDuration().String())
	return nil
}

func (t *ExtractContentTask) extractEntry(ctx context.Context, entry database.EntryForExtraction) error {
	resp, err := t.client.Get(ctx, entry.Link)
	if err != nil {
		return err
	}

	content, thumbnailURL, err := t.extractor.Run(resp.Body, resp.URL)
	if err != nil {
		return err
	}

	return t.entryRepo.UpdateEntryContent(entry.ID, content, thumbnailURL)
}
