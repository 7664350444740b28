package agent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookmarksFile = `{
   "checksum": "abc",
   "roots": {
      "bookmark_bar": {
         "children": [ {
            "children": [ {
               "date_added": "13300000000000000",
               "id": "5",
               "name": "Go",
               "type": "url",
               "url": "https://go.dev/"
            } ],
            "date_added": "13299999999000000",
            "date_modified": "13300000001000000",
            "id": "4",
            "name": "Dev",
            "type": "folder"
         }, {
            "date_added": "0",
            "id": "6",
            "name": "News",
            "type": "url",
            "url": "https://news.example/"
         } ],
         "date_added": "13200000000000000",
         "date_modified": "0",
         "id": "1",
         "name": "Bookmarks bar",
         "type": "folder"
      },
      "other": {
         "children": [ {
            "date_added": "13300000000000000",
            "id": "7",
            "name": "Private",
            "type": "url",
            "url": "https://private.example/"
         } ],
         "id": "2",
         "name": "Other bookmarks",
         "type": "folder"
      },
      "synced": {
         "children": [ ],
         "id": "3",
         "name": "Mobile bookmarks",
         "type": "folder"
      }
   },
   "version": 1
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Bookmarks")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestChromeTime(t *testing.T) {
	assert.Equal(t, int64(1655526400000), ChromeTime("13300000000000000"))
	assert.Equal(t, int64(0), ChromeTime("0"))
	assert.Equal(t, int64(0), ChromeTime(""))
	assert.Equal(t, int64(0), ChromeTime("soon"))
}

func TestReadChromeBookmarks(t *testing.T) {
	f, err := ReadChromeBookmarks(writeFile(t, bookmarksFile))
	require.NoError(t, err)
	assert.Equal(t, BookmarkBarID, f.Roots.BookmarkBar.ID)
	assert.Len(t, f.Roots.Other.Children, 1)

	_, err = ReadChromeBookmarks(writeFile(t, `{"roots":{}}`))
	assert.Error(t, err)

	_, err = ReadChromeBookmarks(writeFile(t, `not json`))
	assert.Error(t, err)

	_, err = ReadChromeBookmarks(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFlattenBookmarkBar(t *testing.T) {
	f, err := ReadChromeBookmarks(writeFile(t, bookmarksFile))
	require.NoError(t, err)

	folders, bookmarks := Flatten(f.Roots.BookmarkBar)

	require.Len(t, folders, 2)
	bar, dev := folders[0], folders[1]

	assert.Equal(t, "1", bar.ChromeID)
	assert.Equal(t, "0", *bar.ParentID)
	assert.Equal(t, "/Bookmarks bar", bar.Path)
	assert.Nil(t, bar.DateModified)

	assert.Equal(t, "4", dev.ChromeID)
	assert.Equal(t, "1", *dev.ParentID)
	assert.Equal(t, "/Bookmarks bar/Dev", dev.Path)
	assert.Equal(t, 0, dev.Position)
	require.NotNil(t, dev.DateModified)
	assert.Equal(t, int64(1655526401000), *dev.DateModified)

	require.Len(t, bookmarks, 2)
	goDev, news := bookmarks[0], bookmarks[1]

	assert.Equal(t, "5", goDev.ChromeID)
	assert.Equal(t, "4", *goDev.ParentID)
	assert.Equal(t, "/Bookmarks bar/Dev", goDev.Path)
	assert.Equal(t, "https://go.dev/", *goDev.URL)
	assert.Equal(t, int64(1655526400000), goDev.DateAdded)
	assert.False(t, goDev.IsFolder)

	assert.Equal(t, "/Bookmarks bar", news.Path)
	assert.Equal(t, 1, news.Position)
	assert.Positive(t, news.DateAdded)

	for _, b := range bookmarks {
		assert.NotEqual(t, "7", b.ChromeID)
	}
}

func TestFlattenSkipsRootNode(t *testing.T) {
	root := ChromeNode{
		ID:   "0",
		Type: "folder",
		Children: []ChromeNode{
			{ID: "1", Name: "Bar", Type: "folder", Children: []ChromeNode{
				{ID: "9", Name: "x", Type: "url", URL: "https://x.example"},
			}},
		},
	}

	folders, bookmarks := Flatten(root)
	require.Len(t, folders, 1)
	assert.Equal(t, "/Bar", folders[0].Path)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, "/Bar", bookmarks[0].Path)
}
