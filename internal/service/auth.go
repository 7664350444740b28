package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

const (
	touchTimeout = 5 * time.Second
	keySeparator = "."
)

type Auth struct {
	store  *db.Store
	logger *zap.SugaredLogger
	now    func() time.Time

	// in-flight last_used_at updates
	pending sync.WaitGroup
}

func NewAuth(store *db.Store, l *zap.SugaredLogger) *Auth {
	return &Auth{
		store:  store,
		logger: l,
		now:    time.Now,
	}
}

// ExtractBearer returns the credential from an Authorization header value.
// A header without the Bearer prefix is taken as the raw key.
func ExtractBearer(header string) string {
	token, _ := strings.CutPrefix(strings.TrimLeft(header, " \t"), "Bearer ")
	return strings.TrimSpace(token)
}

// HashAPIKey is the digest stored for a key; keys are only ever compared by it.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey returns a fresh key, the record id it is stored under and
// its digest. A key reads "<id>.<secret>": the id selects the record, the
// secret is not recoverable from anything persisted.
func GenerateAPIKey() (id, key, hash string) {
	id = uuid.NewString()
	key = id + keySeparator + strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return id, key, HashAPIKey(key)
}

// digest compared against when no record matches, so unknown ids cost the
// same as wrong secrets
var unknownKeyHash = HashAPIKey("")

func (s *Auth) ValidateAPIKey(ctx context.Context, rawKey string) (*models.ApiKey, error) {
	if rawKey == "" {
		return nil, &models.UnauthorizedError{Message: "API key required"}
	}

	invalid := &models.UnauthorizedError{Message: "Invalid API key"}
	id, _, ok := strings.Cut(rawKey, keySeparator)
	if !ok || id == "" {
		return nil, invalid
	}

	key := models.ApiKey{}
	found, err := s.store.QueryFirst(ctx, &key, sq.Select("*").From("api_keys").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	stored := key.KeyHash
	if !found {
		stored = unknownKeyHash
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(HashAPIKey(rawKey))) != 1 || !found {
		return nil, invalid
	}

	now := s.now().UnixMilli()
	s.touch(key.ID, now)
	key.LastUsedAt = &now

	return &key, nil
}

// touch records key usage without holding up the caller. Concurrent touches
// of the same key are last-write-wins.
func (s *Auth) touch(id string, at int64) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()

		q := sq.Update("api_keys").Set("last_used_at", at).Where(sq.Eq{"id": id})
		if _, err := s.store.Execute(ctx, q); err != nil {
			s.logger.Warnw("update api key last_used_at", "key_id", id, "error", err)
		}
	}()
}

// Wait blocks until background usage updates are flushed.
func (s *Auth) Wait() {
	s.pending.Wait()
}

// CreateAPIKey stores a new key under name and returns the plain key. This is
// the only time the plain key is available.
func (s *Auth) CreateAPIKey(ctx context.Context, name string) (string, *models.ApiKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, models.NewValidationError("name", "API key name required")
	}

	id, key, hash := GenerateAPIKey()
	record := models.ApiKey{
		ID:        id,
		KeyHash:   hash,
		Name:      name,
		CreatedAt: s.now().UnixMilli(),
	}

	q := sq.Insert("api_keys").
		Columns("id", "key_hash", "name", "created_at").
		Values(record.ID, record.KeyHash, record.Name, record.CreatedAt)
	if _, err := s.store.Execute(ctx, q); err != nil {
		return "", nil, err
	}

	return key, &record, nil
}

func (s *Auth) ListAPIKeys(ctx context.Context) ([]models.ApiKey, error) {
	keys := make([]models.ApiKey, 0)
	q := sq.Select("id", "name", "created_at", "last_used_at").From("api_keys").OrderBy("created_at")
	if err := s.store.Query(ctx, &keys, q); err != nil {
		return nil, err
	}
	return keys, nil
}
