package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"feedreader/app/crawler"
	"feedreader/app/database"
	"feedreader/app/feed"
	"feedreader/app/tasks"
)

const defaultEntryLimit = 50

func NewHandler(feedRepo database.FeedRepository, entryRepo database.EntryRepository,
	processor *feed.Processor, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		feedRepo:  feedRepo,
		entryRepo: entryRepo,
		processor: processor,
		scheduler: scheduler,
	}
}

// DiscoverFeed subscribes to a new feed: it crawls the submitted URL,
// stores the discovered feed and answers with it. Re-submitting a known
// feed returns the existing record.
func (h *Handler) DiscoverFeed(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	discovered, inserted, err := h.processor.DiscoverFeed(c.Request.Context(), req.URL)

	if errors.Is(err, database.ErrDuplicateFeed) {
		c.JSON(http.StatusOK, newFeedResponse(discovered))
		return
	}
	var notFound *crawler.NoFeedFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no feed found", "url": notFound.Seed})
		return
	}
	if err != nil {
		slog.Error("Feed discovery failed", "seed", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "discovery failed"})
		return
	}

	resp := newFeedResponse(discovered)
	c.Header("X-New-Entries", strconv.Itoa(inserted))
	c.JSON(http.StatusCreated, resp)
}

// RefreshFeed enqueues an immediate background refresh for one feed.
func (h *Handler) RefreshFeed(c *gin.Context) {
	dbFeed, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	task := tasks.NewRefreshFeedTask(*dbFeed, h.processor)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Failed to enqueue refresh", "feed_id", dbFeed.ID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh queue is full"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "refresh scheduled", "feed_id": dbFeed.ID})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.GetAllFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]feedResponse, 0, len(feeds))
	for i := range feeds {
		out = append(out, newFeedResponse(&feeds[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) GetFeedEntries(c *gin.Context) {
	dbFeed, ok := h.lookupFeed(c)
	if !ok {
		return
	}

	limit := defaultEntryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.entryRepo.GetEntries(dbFeed.ID, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_entries", "feed_id", dbFeed.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, newEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, gin.H{"feed": newFeedResponse(dbFeed), "entries": out})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}
	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	feeds, err := h.feedRepo.GetAllFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	totalEntries := 0
	for i := range feeds {
		count, err := h.entryRepo.GetEntryCount(feeds[i].ID)
		if err != nil {
			continue
		}
		totalEntries += count
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds":   len(feeds),
		"entries": totalEntries,
	})
}

func (h *Handler) lookupFeed(c *gin.Context) (*database.Feed, bool) {
	id := c.Param("id")
	if id == "" {
		c.Status(http.StatusBadRequest)
		return nil, false
	}

	dbFeed, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return nil, false
	}
	if dbFeed == nil {
		c.Status(http.StatusNotFound)
		return nil, false
	}
	return dbFeed, true
}
