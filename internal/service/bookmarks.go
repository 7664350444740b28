package service

import (
	"context"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

var (
	folderColumns   = []string{"id", "chrome_id", "parent_id", "title", "path", "date_added", "date_modified", "position", "created_at", "updated_at"}
	bookmarkColumns = []string{"id", "chrome_id", "folder_id", "title", "url", "favicon_url", "path", "date_added", "date_modified", "position", "created_at", "updated_at"}
)

// Bookmarks keeps the folders and bookmarks tables in line with the browser.
// Rows are always addressed by chrome_id; internal ids are generated here on
// first sight and never change afterwards.
type Bookmarks struct {
	store  *db.Store
	logger *zap.SugaredLogger
	now    func() time.Time
	newID  func() string
}

func NewBookmarks(store *db.Store, l *zap.SugaredLogger) *Bookmarks {
	return &Bookmarks{
		store:  store,
		logger: l,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Bookmarks) GetAll(ctx context.Context) (*models.BookmarksResponse, error) {
	folders := make([]models.Folder, 0)
	if err := s.store.Query(ctx, &folders, sq.Select(folderColumns...).From("folders").OrderBy("path", "position")); err != nil {
		return nil, err
	}

	bookmarks := make([]models.Bookmark, 0)
	if err := s.store.Query(ctx, &bookmarks, sq.Select(bookmarkColumns...).From("bookmarks").OrderBy("path", "position")); err != nil {
		return nil, err
	}

	return &models.BookmarksResponse{
		Folders:   folders,
		Bookmarks: bookmarks,
	}, nil
}

func (s *Bookmarks) UpsertFolder(ctx context.Context, data models.FolderSyncData) error {
	existing := models.Folder{}
	found, err := s.store.QueryFirst(ctx, &existing, sq.Select("id").From("folders").Where(sq.Eq{"chrome_id": data.ChromeID}))
	if err != nil {
		return err
	}

	parentID, err := s.resolveFolder(ctx, data.ParentID)
	if err != nil {
		return err
	}

	now := s.now().UnixMilli()

	if found {
		modified := now
		if data.DateModified != nil {
			modified = *data.DateModified
		}
		_, err = s.store.Execute(ctx, sq.Update("folders").SetMap(sq.Eq{
			"parent_id":     parentID,
			"title":         data.Title,
			"path":          data.Path,
			"date_modified": modified,
			"position":      data.Position,
			"updated_at":    now,
		}).Where(sq.Eq{"chrome_id": data.ChromeID}))
		return err
	}

	_, err = s.store.Execute(ctx, sq.Insert("folders").Columns(folderColumns...).Values(
		s.newID(), data.ChromeID, parentID, data.Title, data.Path,
		data.DateAdded, data.DateModified, data.Position, now, now,
	))
	return err
}

func (s *Bookmarks) UpsertBookmark(ctx context.Context, data models.BookmarkSyncData) error {
	if !IsValidBookmarkURL(data.URL) {
		return models.NewValidationError("bookmark.url", "Invalid bookmark URL protocol")
	}
	favicon := data.FaviconURL
	if favicon != nil && !IsValidBookmarkURL(favicon) {
		favicon = nil
	}

	existing := models.Bookmark{}
	found, err := s.store.QueryFirst(ctx, &existing, sq.Select("id").From("bookmarks").Where(sq.Eq{"chrome_id": data.ChromeID}))
	if err != nil {
		return err
	}

	folderID, err := s.resolveFolder(ctx, data.ParentID)
	if err != nil {
		return err
	}

	now := s.now().UnixMilli()

	if found {
		modified := now
		if data.DateModified != nil {
			modified = *data.DateModified
		}
		set := sq.Eq{
			"folder_id":     folderID,
			"title":         data.Title,
			"url":           *data.URL,
			"path":          data.Path,
			"date_modified": modified,
			"position":      data.Position,
			"updated_at":    now,
		}
		if favicon != nil {
			set["favicon_url"] = *favicon
		}
		_, err = s.store.Execute(ctx, sq.Update("bookmarks").SetMap(set).Where(sq.Eq{"chrome_id": data.ChromeID}))
		return err
	}

	_, err = s.store.Execute(ctx, sq.Insert("bookmarks").Columns(bookmarkColumns...).Values(
		s.newID(), data.ChromeID, folderID, data.Title, *data.URL, favicon, data.Path,
		data.DateAdded, data.DateModified, data.Position, now, now,
	))
	return err
}

func (s *Bookmarks) RemoveBookmark(ctx context.Context, chromeID string) error {
	_, err := s.store.Execute(ctx, sq.Delete("bookmarks").Where(sq.Eq{"chrome_id": chromeID}))
	return err
}

// RemoveFolder deletes the folder and the bookmarks directly inside it. Nested
// folders and their bookmarks go through the ON DELETE CASCADE of the schema.
func (s *Bookmarks) RemoveFolder(ctx context.Context, chromeID string) error {
	folder := models.Folder{}
	found, err := s.store.QueryFirst(ctx, &folder, sq.Select("id").From("folders").Where(sq.Eq{"chrome_id": chromeID}))
	if err != nil || !found {
		return err
	}

	_, err = s.store.Batch(ctx, []sq.Sqlizer{
		sq.Delete("bookmarks").Where(sq.Eq{"folder_id": folder.ID}),
		sq.Delete("folders").Where(sq.Eq{"id": folder.ID}),
	})
	return err
}

// MoveBookmark only touches placement: parent, path, position and updated_at.
func (s *Bookmarks) MoveBookmark(ctx context.Context, chromeID string, newParentID *string, newPath string, newPosition int) error {
	folderID, err := s.resolveFolder(ctx, newParentID)
	if err != nil {
		return err
	}

	_, err = s.store.Execute(ctx, sq.Update("bookmarks").SetMap(sq.Eq{
		"folder_id":  folderID,
		"path":       newPath,
		"position":   newPosition,
		"updated_at": s.now().UnixMilli(),
	}).Where(sq.Eq{"chrome_id": chromeID}))
	return err
}

func (s *Bookmarks) MoveFolder(ctx context.Context, chromeID string, newParentID *string, newPath string, newPosition int) error {
	parentID, err := s.resolveFolder(ctx, newParentID)
	if err != nil {
		return err
	}

	_, err = s.store.Execute(ctx, sq.Update("folders").SetMap(sq.Eq{
		"parent_id":  parentID,
		"path":       newPath,
		"position":   newPosition,
		"updated_at": s.now().UnixMilli(),
	}).Where(sq.Eq{"chrome_id": chromeID}))
	return err
}

// SyncAll replaces everything stored with the given set. Folders are inserted
// shallowest path first so a parent always gets its internal id before any of
// its children look it up. The whole replacement is a single transaction.
func (s *Bookmarks) SyncAll(ctx context.Context, folders []*models.FolderSyncData, bookmarks []*models.BookmarkSyncData) (models.SyncStats, error) {
	now := s.now().UnixMilli()

	statements := []sq.Sqlizer{
		sq.Delete("bookmarks"),
		sq.Delete("folders"),
	}

	sorted := make([]*models.FolderSyncData, len(folders))
	copy(sorted, folders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return pathDepth(sorted[i].Path) < pathDepth(sorted[j].Path)
	})

	ids := make(map[string]string, len(sorted))
	for _, f := range sorted {
		var parentID *string
		if f.ParentID != nil {
			if id, ok := ids[*f.ParentID]; ok {
				parentID = &id
			}
		}

		id := s.newID()
		ids[f.ChromeID] = id

		statements = append(statements, sq.Insert("folders").Columns(folderColumns...).Values(
			id, f.ChromeID, parentID, f.Title, f.Path,
			orNow(f.DateAdded, now), f.DateModified, f.Position, now, now,
		))
	}

	inserted := 0
	for _, b := range bookmarks {
		if b.IsFolder || !IsValidBookmarkURL(b.URL) {
			continue
		}

		var folderID *string
		if b.ParentID != nil {
			if id, ok := ids[*b.ParentID]; ok {
				folderID = &id
			}
		}

		favicon := b.FaviconURL
		if favicon != nil && !IsValidBookmarkURL(favicon) {
			favicon = nil
		}

		statements = append(statements, sq.Insert("bookmarks").Columns(bookmarkColumns...).Values(
			s.newID(), b.ChromeID, folderID, b.Title, *b.URL, favicon, b.Path,
			orNow(b.DateAdded, now), b.DateModified, b.Position, now, now,
		))
		inserted++
	}

	if _, err := s.store.Batch(ctx, statements); err != nil {
		return models.SyncStats{}, err
	}

	s.logger.Infow("full sync stored", "folders", len(sorted), "bookmarks", inserted)

	return models.SyncStats{
		Folders:   len(sorted),
		Bookmarks: inserted,
	}, nil
}

// resolveFolder maps a browser folder id to our internal id. Unknown parents
// resolve to nil, which places the item at the root.
func (s *Bookmarks) resolveFolder(ctx context.Context, chromeID *string) (*string, error) {
	if chromeID == nil || *chromeID == "" {
		return nil, nil
	}

	folder := models.Folder{}
	found, err := s.store.QueryFirst(ctx, &folder, sq.Select("id").From("folders").Where(sq.Eq{"chrome_id": *chromeID}))
	if err != nil {
		return nil, err
	}
	if !found {
		s.logger.Debugw("parent folder not stored, placing at root", "parent_chrome_id", *chromeID)
		return nil, nil
	}
	return &folder.ID, nil
}

func pathDepth(path string) int {
	return len(strings.Split(path, "/"))
}

func orNow(ms, now int64) int64 {
	if ms == 0 {
		return now
	}
	return ms
}
