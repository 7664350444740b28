package models

// All timestamps are unix milliseconds, the same unit browsers report bookmark dates in.
type (
	Folder struct {
		ID           string  `gorm:"primarykey;size:36" json:"id"`
		ChromeID     string  `gorm:"uniqueIndex;not null" json:"chrome_id"`
		ParentID     *string `gorm:"index;size:36" json:"parent_id"`
		Parent       *Folder `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
		Title        string  `gorm:"not null" json:"title"`
		Path         string  `gorm:"not null;index:idx_folders_path_position,priority:1" json:"path"`
		DateAdded    int64   `gorm:"not null" json:"date_added"`
		DateModified *int64  `json:"date_modified"`
		Position     int     `gorm:"not null;default:0;index:idx_folders_path_position,priority:2" json:"position"`
		CreatedAt    int64   `gorm:"autoCreateTime:milli;not null" json:"created_at"`
		UpdatedAt    int64   `gorm:"autoUpdateTime:milli;not null" json:"updated_at"`
	}

	Bookmark struct {
		ID           string  `gorm:"primarykey;size:36" json:"id"`
		ChromeID     string  `gorm:"uniqueIndex;not null" json:"chrome_id"`
		FolderID     *string `gorm:"index;size:36" json:"folder_id"`
		Folder       *Folder `gorm:"foreignKey:FolderID;constraint:OnDelete:CASCADE" json:"-"`
		Title        string  `gorm:"not null" json:"title"`
		URL          string  `gorm:"column:url;not null" json:"url"`
		FaviconURL   *string `gorm:"column:favicon_url" json:"favicon_url"`
		Path         string  `gorm:"not null;index:idx_bookmarks_path_position,priority:1" json:"path"`
		DateAdded    int64   `gorm:"not null" json:"date_added"`
		DateModified *int64  `json:"date_modified"`
		Position     int     `gorm:"not null;default:0;index:idx_bookmarks_path_position,priority:2" json:"position"`
		CreatedAt    int64   `gorm:"autoCreateTime:milli;not null" json:"created_at"`
		UpdatedAt    int64   `gorm:"autoUpdateTime:milli;not null" json:"updated_at"`
	}

	// ApiKey never holds the secret itself, only its digest.
	ApiKey struct {
		ID         string `gorm:"primarykey;size:36" json:"id"`
		KeyHash    string `gorm:"uniqueIndex;not null;size:64" json:"-"`
		Name       string `gorm:"not null" json:"name"`
		CreatedAt  int64  `gorm:"autoCreateTime:milli;not null" json:"created_at"`
		LastUsedAt *int64 `json:"last_used_at"`
	}

	KVEntry struct {
		Key       string `gorm:"primarykey;size:255"`
		Value     string `gorm:"not null"`
		ExpiresAt int64  `gorm:"not null;index"`
	}
)

func (Folder) TableName() string   { return "folders" }
func (Bookmark) TableName() string { return "bookmarks" }
func (ApiKey) TableName() string   { return "api_keys" }
func (KVEntry) TableName() string  { return "kv_entries" }
