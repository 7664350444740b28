package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/db/dbtest"
	"github.com/Rogue-Bear-Innovations/bookmarksync/internal/models"
)

func newTestAuth(t *testing.T) *Auth {
	auth := NewAuth(dbtest.NewStore(t), zaptest.NewLogger(t).Sugar())
	auth.now = func() time.Time { return time.UnixMilli(5000) }
	return auth
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearer("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearer("  Bearer abc  "))
	assert.Equal(t, "abc", ExtractBearer("abc"))
	assert.Equal(t, "", ExtractBearer(""))
	assert.Equal(t, "", ExtractBearer("Bearer "))
}

func TestGenerateAPIKey(t *testing.T) {
	id1, k1, h1 := GenerateAPIKey()
	_, k2, h2 := GenerateAPIKey()

	assert.True(t, strings.HasPrefix(k1, id1+"."))
	assert.Greater(t, len(k1), len(id1)+32)
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.Equal(t, HashAPIKey(k1), h1)
	assert.NotContains(t, h1, k1)
}

func TestValidateAPIKey(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)

	key, record, err := auth.CreateAPIKey(ctx, "laptop")
	require.NoError(t, err)

	t.Run("missing key", func(t *testing.T) {
		_, err := auth.ValidateAPIKey(ctx, "")
		var unauthorized *models.UnauthorizedError
		require.True(t, errors.As(err, &unauthorized))
		assert.Equal(t, "API key required", unauthorized.Message)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := auth.ValidateAPIKey(ctx, "not-a-key")
		var unauthorized *models.UnauthorizedError
		require.True(t, errors.As(err, &unauthorized))
		assert.Equal(t, "Invalid API key", unauthorized.Message)
	})

	t.Run("key without id", func(t *testing.T) {
		_, err := auth.ValidateAPIKey(ctx, ".secret")
		var unauthorized *models.UnauthorizedError
		assert.True(t, errors.As(err, &unauthorized))
	})

	t.Run("digest is not a credential", func(t *testing.T) {
		_, err := auth.ValidateAPIKey(ctx, record.KeyHash)
		var unauthorized *models.UnauthorizedError
		assert.True(t, errors.As(err, &unauthorized))
	})

	t.Run("valid key records usage", func(t *testing.T) {
		got, err := auth.ValidateAPIKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, "laptop", got.Name)

		auth.Wait()

		stored := models.ApiKey{}
		found, err := auth.store.QueryFirst(ctx, &stored, sq.Select("*").From("api_keys").Where(sq.Eq{"id": record.ID}))
		require.NoError(t, err)
		require.True(t, found)
		require.NotNil(t, stored.LastUsedAt)
		assert.EqualValues(t, 5000, *stored.LastUsedAt)
	})
}

// The id prefix only selects the record; the secret is decided by the
// constant-time digest comparison.
func TestValidateAPIKeyComparesDigestInConstantTime(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)

	key, record, err := auth.CreateAPIKey(ctx, "laptop")
	require.NoError(t, err)

	for name, candidate := range map[string]string{
		"wrong secret":     record.ID + ".0000000000000000000000000000000000000000000000000000000000000000",
		"empty secret":     record.ID + ".",
		"truncated secret": key[:len(key)-1],
		"extended secret":  key + "0",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateAPIKey(ctx, candidate)
			var unauthorized *models.UnauthorizedError
			require.True(t, errors.As(err, &unauthorized))
			assert.Equal(t, "Invalid API key", unauthorized.Message)
		})
	}

	got, err := auth.ValidateAPIKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	auth.Wait()
}

func TestCreateAPIKeyStoresOnlyDigest(t *testing.T) {
	ctx := context.Background()
	auth := newTestAuth(t)

	key, _, err := auth.CreateAPIKey(ctx, "desktop")
	require.NoError(t, err)

	keys := make([]models.ApiKey, 0)
	require.NoError(t, auth.store.Query(ctx, &keys, sq.Select("*").From("api_keys")))
	require.Len(t, keys, 1)
	assert.Equal(t, HashAPIKey(key), keys[0].KeyHash)
	assert.NotEqual(t, key, keys[0].KeyHash)

	_, _, err = auth.CreateAPIKey(ctx, "  ")
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)

	listed, err := auth.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "desktop", listed[0].Name)
	assert.Empty(t, listed[0].KeyHash)
}
