package service

import (
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

// BuildTree nests folders and bookmarks by internal parent id. Anything whose
// parent is not in the set lands at the root. Siblings keep input order.
func BuildTree(folders []models.Folder, bookmarks []models.Bookmark) []*models.TreeNode {
	nodes := make(map[string]*models.TreeNode, len(folders))
	roots := make([]*models.TreeNode, 0)

	for _, f := range folders {
		nodes[f.ID] = &models.TreeNode{
			ID:        f.ID,
			Title:     f.Title,
			Type:      models.NodeFolder,
			DateAdded: f.DateAdded,
			Children:  []*models.TreeNode{},
		}
	}

	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentID != nil {
			if parent, ok := nodes[*f.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	for _, b := range bookmarks {
		node := &models.TreeNode{
			ID:        b.ID,
			Title:     b.Title,
			Type:      models.NodeBookmark,
			URL:       b.URL,
			DateAdded: b.DateAdded,
			Children:  []*models.TreeNode{},
		}
		if b.FaviconURL != nil {
			node.FaviconURL = *b.FaviconURL
		}

		if b.FolderID != nil {
			if parent, ok := nodes[*b.FolderID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}

// BuildBar is the flat "bookmarks bar" view: every folder that directly holds
// a bookmark becomes a category.
func BuildBar(folders []models.Folder, bookmarks []models.Bookmark) *models.BookmarksBarResponse {
	used := make(map[string]bool, len(folders))
	for _, b := range bookmarks {
		if b.FolderID != nil {
			used[*b.FolderID] = true
		}
	}

	categories := make([]models.Folder, 0)
	for _, f := range folders {
		if used[f.ID] {
			categories = append(categories, f)
		}
	}

	if bookmarks == nil {
		bookmarks = []models.Bookmark{}
	}
	return &models.BookmarksBarResponse{
		Categories: categories,
		Bookmarks:  bookmarks,
	}
}
