package agent

import (
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

// Snapshot is one flattened read of the bookmarks bar.
type Snapshot struct {
	Folders   []*models.FolderSyncData
	Bookmarks []*models.BookmarkSyncData
}

func TakeSnapshot(root ChromeNode) *Snapshot {
	folders, bookmarks := Flatten(root)
	return &Snapshot{Folders: folders, Bookmarks: bookmarks}
}

// Event is a single change event as the browser would report it.
type Event struct {
	Action models.SyncAction
	Node   models.BookmarkSyncData
}

// Diff lists the events that turn prev into next. Folder events come before
// bookmark events so a parent always exists when a child refers to it.
// Removals go last, bookmarks first and then folders deepest first. Dates
// are not compared: the flattener stamps missing ones with the read time.
func Diff(prev, next *Snapshot) []Event {
	events := make([]Event, 0)

	oldFolders := make(map[string]*models.FolderSyncData, len(prev.Folders))
	for _, f := range prev.Folders {
		oldFolders[f.ChromeID] = f
	}
	oldBookmarks := make(map[string]*models.BookmarkSyncData, len(prev.Bookmarks))
	for _, b := range prev.Bookmarks {
		oldBookmarks[b.ChromeID] = b
	}

	seen := make(map[string]bool, len(next.Folders)+len(next.Bookmarks))
	for _, f := range next.Folders {
		seen[f.ChromeID] = true
		node := folderNode(f)
		old, ok := oldFolders[f.ChromeID]
		if !ok {
			events = append(events, Event{Action: models.ActionCreate, Node: node})
			continue
		}
		if action, changed := compare(folderNode(old), node); changed {
			events = append(events, Event{Action: action, Node: node})
		}
	}
	for _, b := range next.Bookmarks {
		seen[b.ChromeID] = true
		old, ok := oldBookmarks[b.ChromeID]
		if !ok {
			events = append(events, Event{Action: models.ActionCreate, Node: *b})
			continue
		}
		if action, changed := compare(*old, *b); changed {
			events = append(events, Event{Action: action, Node: *b})
		}
	}

	for _, b := range prev.Bookmarks {
		if !seen[b.ChromeID] {
			events = append(events, Event{Action: models.ActionRemove, Node: models.BookmarkSyncData{ChromeID: b.ChromeID}})
		}
	}
	for i := len(prev.Folders) - 1; i >= 0; i-- {
		f := prev.Folders[i]
		if !seen[f.ChromeID] {
			events = append(events, Event{Action: models.ActionRemove, Node: models.BookmarkSyncData{ChromeID: f.ChromeID, IsFolder: true}})
		}
	}
	return events
}

// compare reports a change when the content differs and a move when only
// the placement does. A change carries the whole node, placement included.
func compare(old, cur models.BookmarkSyncData) (models.SyncAction, bool) {
	if old.Title != cur.Title || deref(old.URL) != deref(cur.URL) {
		return models.ActionChange, true
	}
	if deref(old.ParentID) != deref(cur.ParentID) || old.Path != cur.Path || old.Position != cur.Position {
		return models.ActionMove, true
	}
	return "", false
}

func folderNode(f *models.FolderSyncData) models.BookmarkSyncData {
	return models.BookmarkSyncData{
		ChromeID:     f.ChromeID,
		ParentID:     f.ParentID,
		Title:        f.Title,
		Path:         f.Path,
		DateAdded:    f.DateAdded,
		DateModified: f.DateModified,
		Position:     f.Position,
		IsFolder:     true,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
