// Package agent is the browser side of the sync: it reads a Chrome profile's
// Bookmarks file, flattens the bookmarks bar into sync records and pushes them
// to the server.
package agent

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

const (
	// BookmarkBarID is the id Chrome gives the bookmarks bar. Only this subtree
	// is synced; "Other" and "Mobile" bookmarks stay private.
	BookmarkBarID = "1"
	rootID        = "0"

	// microseconds between 1601-01-01 and 1970-01-01
	windowsEpochOffsetMicros = 11644473600000000
)

type (
	ChromeNode struct {
		ID           string       `json:"id"`
		Name         string       `json:"name"`
		Type         string       `json:"type"`
		URL          string       `json:"url,omitempty"`
		DateAdded    string       `json:"date_added"`
		DateModified string       `json:"date_modified,omitempty"`
		Children     []ChromeNode `json:"children,omitempty"`
	}

	ChromeFile struct {
		Version int `json:"version"`
		Roots   struct {
			BookmarkBar ChromeNode `json:"bookmark_bar"`
			Other       ChromeNode `json:"other"`
			Synced      ChromeNode `json:"synced"`
		} `json:"roots"`
	}
)

func (n *ChromeNode) IsFolder() bool {
	return n.Type == "folder"
}

func ReadChromeBookmarks(path string) (*ChromeFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read bookmarks file")
	}

	f := ChromeFile{}
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(err, "decode bookmarks file")
	}
	if f.Roots.BookmarkBar.ID == "" {
		return nil, errors.New("bookmarks file has no bookmark bar")
	}
	return &f, nil
}

// ChromeTime converts a Chrome timestamp (microseconds since 1601, as a
// decimal string) to Unix milliseconds. Zero or unparsable values give 0.
func ChromeTime(v string) int64 {
	micros, err := strconv.ParseInt(v, 10, 64)
	if err != nil || micros <= 0 {
		return 0
	}
	return (micros - windowsEpochOffsetMicros) / 1000
}

type flattener struct {
	now       int64
	folders   []*models.FolderSyncData
	bookmarks []*models.BookmarkSyncData
}

// Flatten walks root the way the browser extension does for a full sync.
// A folder's path is "/" followed by its own and its ancestors' titles, a
// bookmark's path is its folder's path, and position is the index among
// siblings. root is reported with parent "0", which the server places at the
// top level.
func Flatten(root ChromeNode) ([]*models.FolderSyncData, []*models.BookmarkSyncData) {
	f := flattener{
		now:       time.Now().UnixMilli(),
		folders:   make([]*models.FolderSyncData, 0),
		bookmarks: make([]*models.BookmarkSyncData, 0),
	}
	f.walk(root, rootID, "", 0)
	return f.folders, f.bookmarks
}

func (f *flattener) walk(node ChromeNode, parentID, parentPath string, index int) {
	parent := parentID

	if node.IsFolder() {
		currentPath := node.Name
		if parentPath != "" {
			currentPath = parentPath + "/" + node.Name
		}

		if node.ID != rootID {
			f.folders = append(f.folders, &models.FolderSyncData{
				ChromeID:     node.ID,
				ParentID:     &parent,
				Title:        node.Name,
				Path:         "/" + currentPath,
				DateAdded:    f.orNow(ChromeTime(node.DateAdded)),
				DateModified: optional(ChromeTime(node.DateModified)),
				Position:     index,
			})
		} else {
			currentPath = ""
		}

		for i, child := range node.Children {
			f.walk(child, node.ID, currentPath, i)
		}
		return
	}

	if node.URL == "" {
		return
	}
	url := node.URL
	f.bookmarks = append(f.bookmarks, &models.BookmarkSyncData{
		ChromeID:  node.ID,
		ParentID:  &parent,
		Title:     node.Name,
		URL:       &url,
		Path:      "/" + parentPath,
		DateAdded: f.orNow(ChromeTime(node.DateAdded)),
		Position:  index,
	})
}

func (f *flattener) orNow(ms int64) int64 {
	if ms <= 0 {
		return f.now
	}
	return ms
}

func optional(ms int64) *int64 {
	if ms <= 0 {
		return nil
	}
	return &ms
}
