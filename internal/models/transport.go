package models

type SyncAction string

const (
	ActionCreate  SyncAction = "create"
	ActionRemove  SyncAction = "remove"
	ActionChange  SyncAction = "change"
	ActionMove    SyncAction = "move"
	ActionSyncAll SyncAction = "sync_all"
)

// BookmarkSyncData is a single node as reported by the browser agent. Folders
// arrive through the same shape with IsFolder set.
type BookmarkSyncData struct {
	ChromeID     string  `json:"chrome_id" validate:"required"`
	ParentID     *string `json:"parent_id"`
	Title        string  `json:"title"`
	URL          *string `json:"url"`
	FaviconURL   *string `json:"favicon_url,omitempty"`
	Path         string  `json:"path"`
	DateAdded    int64   `json:"date_added"`
	DateModified *int64  `json:"date_modified,omitempty"`
	Position     int     `json:"position" validate:"min=0"`
	IsFolder     bool    `json:"is_folder"`
}

type FolderSyncData struct {
	ChromeID     string  `json:"chrome_id" validate:"required"`
	ParentID     *string `json:"parent_id"`
	Title        string  `json:"title"`
	Path         string  `json:"path"`
	DateAdded    int64   `json:"date_added"`
	DateModified *int64  `json:"date_modified,omitempty"`
	Position     int     `json:"position" validate:"min=0"`
}

type SyncPayload struct {
	Action    SyncAction          `json:"action"`
	Bookmark  *BookmarkSyncData   `json:"bookmark,omitempty"`
	Bookmarks []*BookmarkSyncData `json:"bookmarks,omitempty"`
	Folders   []*FolderSyncData   `json:"folders,omitempty"`
}

type SyncStats struct {
	Folders   int `json:"folders"`
	Bookmarks int `json:"bookmarks"`
}

type SyncResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Stats   *SyncStats `json:"stats,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type BookmarksResponse struct {
	Folders   []Folder   `json:"folders"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

type BookmarksBarResponse struct {
	Categories []Folder   `json:"categories"`
	Bookmarks  []Bookmark `json:"bookmarks"`
}

type NodeType string

const (
	NodeFolder   NodeType = "folder"
	NodeBookmark NodeType = "bookmark"
)

// TreeNode is rebuilt on every read and never persisted.
type TreeNode struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Type       NodeType    `json:"type"`
	URL        string      `json:"url,omitempty"`
	FaviconURL string      `json:"favicon_url,omitempty"`
	DateAdded  int64       `json:"date_added"`
	Children   []*TreeNode `json:"children"`
}

type TreeResponse struct {
	Tree  []*TreeNode `json:"tree"`
	Stats SyncStats   `json:"stats"`
}

// Folder returns the folder view of a node reported with IsFolder set.
func (b *BookmarkSyncData) Folder() FolderSyncData {
	return FolderSyncData{
		ChromeID:     b.ChromeID,
		ParentID:     b.ParentID,
		Title:        b.Title,
		Path:         b.Path,
		DateAdded:    b.DateAdded,
		DateModified: b.DateModified,
		Position:     b.Position,
	}
}
