package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/config"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

var Module = fx.Provide(New)

// KV is a time-boxed key-value cache. Values are stored as JSON.
type KV interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func New(cfg *config.Config, db *gorm.DB) KV {
	if !cfg.CacheEnabled {
		return Noop{}
	}
	return NewStore(db)
}

// Store keeps entries in the kv_entries table next to the bookmark data.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	entry := models.KVEntry{}
	res := s.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, s.now().UnixMilli()).
		Limit(1).
		Find(&entry)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "read cache entry")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(entry.Value), dest); err != nil {
		return false, errors.Wrap(err, "decode cache entry")
	}
	return true, nil
}

func (s *Store) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	entry := models.KVEntry{
		Key:       key,
		Value:     string(raw),
		ExpiresAt: s.now().Add(ttl).UnixMilli(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&entry)
	if res.Error != nil {
		return errors.Wrap(res.Error, "write cache entry")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	res := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KVEntry{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete cache entry")
	}
	return nil
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, string, interface{}) (bool, error)        { return false, nil }
func (Noop) Put(context.Context, string, interface{}, time.Duration) error { return nil }
func (Noop) Delete(context.Context, string) error                          { return nil }
