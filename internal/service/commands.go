package service

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

// SyncCommand is one of CreateCommand, ChangeCommand, RemoveCommand,
// MoveCommand or SyncAllCommand.
type SyncCommand interface {
	Action() models.SyncAction
}

type (
	CreateCommand struct {
		Node models.BookmarkSyncData
	}

	ChangeCommand struct {
		Node models.BookmarkSyncData
	}

	// RemoveCommand carries only the id: the browser does not say whether a
	// removed node was a folder or a bookmark.
	RemoveCommand struct {
		ChromeID string
	}

	MoveCommand struct {
		ChromeID string
		ParentID *string
		Path     string
		Position int
		IsFolder bool
	}

	SyncAllCommand struct {
		Folders   []*models.FolderSyncData
		Bookmarks []*models.BookmarkSyncData
	}
)

func (CreateCommand) Action() models.SyncAction  { return models.ActionCreate }
func (ChangeCommand) Action() models.SyncAction  { return models.ActionChange }
func (RemoveCommand) Action() models.SyncAction  { return models.ActionRemove }
func (MoveCommand) Action() models.SyncAction    { return models.ActionMove }
func (SyncAllCommand) Action() models.SyncAction { return models.ActionSyncAll }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseSyncCommand checks a decoded payload and turns it into a command. All
// failures are *models.ValidationError naming the offending field.
func ParseSyncCommand(p *models.SyncPayload) (SyncCommand, error) {
	switch p.Action {
	case models.ActionCreate, models.ActionChange:
		node, err := requireNode(p)
		if err != nil {
			return nil, err
		}
		if !node.IsFolder && !IsValidBookmarkURL(node.URL) {
			return nil, models.NewValidationError("bookmark.url", "Invalid bookmark URL protocol")
		}
		if p.Action == models.ActionCreate {
			return CreateCommand{Node: *node}, nil
		}
		return ChangeCommand{Node: *node}, nil

	case models.ActionRemove:
		node, err := requireNode(p)
		if err != nil {
			return nil, err
		}
		return RemoveCommand{ChromeID: node.ChromeID}, nil

	case models.ActionMove:
		node, err := requireNode(p)
		if err != nil {
			return nil, err
		}
		return MoveCommand{
			ChromeID: node.ChromeID,
			ParentID: node.ParentID,
			Path:     node.Path,
			Position: node.Position,
			IsFolder: node.IsFolder,
		}, nil

	case models.ActionSyncAll:
		if p.Folders == nil || p.Bookmarks == nil {
			return nil, models.NewValidationError("folders,bookmarks", "Folders and bookmarks arrays required")
		}
		for i, f := range p.Folders {
			field := fmt.Sprintf("folders[%d]", i)
			if f == nil {
				return nil, models.NewValidationError(field, "Folder data required")
			}
			if err := validateStruct(field, f); err != nil {
				return nil, err
			}
		}

		bookmarks := make([]*models.BookmarkSyncData, 0, len(p.Bookmarks))
		for i, b := range p.Bookmarks {
			if b == nil || b.IsFolder || !IsValidBookmarkURL(b.URL) {
				continue
			}
			if err := validateStruct(fmt.Sprintf("bookmarks[%d]", i), b); err != nil {
				return nil, err
			}
			bookmarks = append(bookmarks, b)
		}
		return SyncAllCommand{Folders: p.Folders, Bookmarks: bookmarks}, nil

	default:
		return nil, models.NewValidationError("action", "Invalid action: %s", p.Action)
	}
}

func requireNode(p *models.SyncPayload) (*models.BookmarkSyncData, error) {
	if p.Bookmark == nil {
		return nil, models.NewValidationError("bookmark", "Bookmark data required")
	}
	if err := validateStruct("bookmark", p.Bookmark); err != nil {
		return nil, err
	}
	return p.Bookmark, nil
}

func validateStruct(prefix string, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return models.NewValidationError(prefix, err.Error())
	}

	fe := verrs[0]
	field := prefix + "." + fe.Field()
	switch fe.Tag() {
	case "required":
		return models.NewValidationError(field, "%s is required", field)
	case "min":
		return models.NewValidationError(field, "%s must be at least %s", field, fe.Param())
	default:
		return models.NewValidationError(field, "%s failed on %s", field, fe.Tag())
	}
}

// Dispatcher applies parsed commands to the sync service.
type Dispatcher struct {
	bookmarks *Bookmarks
	display   *Display
	logger    *zap.SugaredLogger
}

func NewDispatcher(bookmarks *Bookmarks, display *Display, l *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		bookmarks: bookmarks,
		display:   display,
		logger:    l,
	}
}

func (d *Dispatcher) Apply(ctx context.Context, cmd SyncCommand) (*models.SyncResponse, error) {
	resp, err := d.apply(ctx, cmd)
	if err != nil {
		return nil, err
	}
	d.display.Invalidate(ctx)
	return resp, nil
}

func (d *Dispatcher) apply(ctx context.Context, cmd SyncCommand) (*models.SyncResponse, error) {
	switch c := cmd.(type) {
	case CreateCommand:
		if err := d.upsert(ctx, c.Node); err != nil {
			return nil, err
		}
		return &models.SyncResponse{Success: true, Message: "Bookmark created"}, nil

	case ChangeCommand:
		if err := d.upsert(ctx, c.Node); err != nil {
			return nil, err
		}
		return &models.SyncResponse{Success: true, Message: "Bookmark updated"}, nil

	case RemoveCommand:
		if err := d.bookmarks.RemoveBookmark(ctx, c.ChromeID); err != nil {
			return nil, err
		}
		if err := d.bookmarks.RemoveFolder(ctx, c.ChromeID); err != nil {
			return nil, err
		}
		return &models.SyncResponse{Success: true, Message: "Bookmark removed"}, nil

	case MoveCommand:
		var err error
		if c.IsFolder {
			err = d.bookmarks.MoveFolder(ctx, c.ChromeID, c.ParentID, c.Path, c.Position)
		} else {
			err = d.bookmarks.MoveBookmark(ctx, c.ChromeID, c.ParentID, c.Path, c.Position)
		}
		if err != nil {
			return nil, err
		}
		return &models.SyncResponse{Success: true, Message: "Bookmark moved"}, nil

	case SyncAllCommand:
		stats, err := d.bookmarks.SyncAll(ctx, c.Folders, c.Bookmarks)
		if err != nil {
			return nil, err
		}
		return &models.SyncResponse{Success: true, Message: "Full sync completed", Stats: &stats}, nil

	default:
		return nil, models.NewValidationError("action", "Invalid action: %s", cmd.Action())
	}
}

func (d *Dispatcher) upsert(ctx context.Context, node models.BookmarkSyncData) error {
	if node.IsFolder {
		return d.bookmarks.UpsertFolder(ctx, node.Folder())
	}
	return d.bookmarks.UpsertBookmark(ctx, node)
}
