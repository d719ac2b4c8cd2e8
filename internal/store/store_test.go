package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/store/schema"
	"gorm.io/datatypes"
)

func TestCreateAndGetUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "u1", "Ada", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", created.UserID)
	assert.True(t, created.IsActive)

	fetched, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Ada", fetched.Name)
	assert.Equal(t, "ada@example.com", fetched.Email)
}

func TestCreateUserDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "u1", "Ada", "ada@example.com")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "u1", "Other", "other@example.com")
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestGetUserMissing(t *testing.T) {
	s, _ := newTestStore(t)

	user, err := s.GetUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestListUsersActiveOnly(t *testing.T) {
	s, tx := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "u1", "Ada", "ada@example.com")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "u2", "Ben", "ben@example.com")
	require.NoError(t, err)
	require.NoError(t, tx.Model(&schema.User{}).Where("user_id = ?", "u2").Update("is_active", false).Error)

	all, err := s.ListUsers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ListUsers(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "u1", active[0].UserID)
}

func TestAPIKeyLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	key := &schema.APIKey{
		KeyHash:     "deadbeef",
		UserID:      "u1",
		Name:        "ci",
		Permissions: datatypes.JSONSlice[string]{"read", "write"},
		IsActive:    true,
	}
	require.NoError(t, s.CreateAPIKey(ctx, key))
	assert.NotZero(t, key.ID)

	fetched, err := s.GetAPIKeyByHash(ctx, "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "u1", fetched.UserID)
	assert.Equal(t, []string{"read", "write"}, []string(fetched.Permissions))
	assert.Nil(t, fetched.LastUsed)

	usedAt := time.Now().UTC()
	require.NoError(t, s.TouchAPIKey(ctx, key.ID, usedAt))
	fetched, err = s.GetAPIKeyByHash(ctx, "deadbeef")
	require.NoError(t, err)
	require.NotNil(t, fetched.LastUsed)

	found, err := s.RevokeAPIKey(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, found)

	// Revoked keys are invisible to hash lookup
	fetched, err = s.GetAPIKeyByHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, fetched)

	found, err = s.RevokeAPIKey(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListAPIKeys(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, h := range []string{"h1", "h2"} {
		require.NoError(t, s.CreateAPIKey(ctx, &schema.APIKey{
			KeyHash:     h,
			UserID:      "u1",
			Name:        h,
			Permissions: datatypes.JSONSlice[string]{"read"},
			IsActive:    true,
		}))
	}
	require.NoError(t, s.CreateAPIKey(ctx, &schema.APIKey{
		KeyHash:     "h3",
		UserID:      "u2",
		Name:        "other",
		Permissions: datatypes.JSONSlice[string]{"read"},
		IsActive:    true,
	}))

	keys, err := s.ListAPIKeys(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	_, err = s.RevokeAPIKey(ctx, keys[0].ID)
	require.NoError(t, err)

	remaining, err := s.ListAPIKeys(ctx, "u1", true)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
