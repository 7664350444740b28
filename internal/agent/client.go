package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

var ErrNoAPIKey = errors.New("no API key configured")

// RemoteError is a non-2xx answer from the sync endpoint. Body is the raw
// response text.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sync failed (%d): %s", e.StatusCode, e.Body)
}

type Client struct {
	http   *resty.Client
	apiKey string
	logger *zap.SugaredLogger
}

// NewClient talks to the bookmarks API rooted at baseURL, for example
// "https://example.com/api/bookmarks".
func NewClient(baseURL, apiKey string, logger *zap.SugaredLogger) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(30 * time.Second).
			SetHeader("Content-Type", "application/json"),
		apiKey: apiKey,
		logger: logger,
	}
}

// Push sends one change event.
func (c *Client) Push(ctx context.Context, action models.SyncAction, node models.BookmarkSyncData) (*models.SyncResponse, error) {
	return c.send(ctx, &models.SyncPayload{
		Action:   action,
		Bookmark: &node,
	})
}

// SyncAll replaces everything on the server with the given snapshot.
func (c *Client) SyncAll(ctx context.Context, folders []*models.FolderSyncData, bookmarks []*models.BookmarkSyncData) (*models.SyncResponse, error) {
	return c.send(ctx, &models.SyncPayload{
		Action:    models.ActionSyncAll,
		Folders:   folders,
		Bookmarks: bookmarks,
	})
}

func (c *Client) send(ctx context.Context, payload *models.SyncPayload) (*models.SyncResponse, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(payload).
		SetResult(&models.SyncResponse{}).
		Post("/sync")
	if err != nil {
		return nil, errors.Wrap(err, "post sync")
	}
	if resp.IsError() {
		c.logger.Errorw("sync failed", "action", payload.Action, "status", resp.StatusCode(), "body", resp.String())
		return nil, &RemoteError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	result, ok := resp.Result().(*models.SyncResponse)
	if !ok {
		return nil, errors.New("unexpected sync response")
	}
	c.logger.Infow("sync success", "action", payload.Action, "message", result.Message)
	return result, nil
}
