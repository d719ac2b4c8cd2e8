package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/logger"
	"github.com/eventfold/analytics/internal/store"
	"github.com/eventfold/analytics/internal/store/schema"
)

// secretBytes is the entropy of a generated key secret
const secretBytes = 32

// keyPrefix marks generated secrets so they are recognizable in logs and
// configuration without revealing anything
const keyPrefix = "efk_"

// Identity is the authenticated caller derived from a validated API key
type Identity struct {
	KeyID       int64
	UserID      string
	Permissions domain.PermissionSet
}

// Manager issues and validates API keys. Only the sha256 hash of a secret is
// ever persisted; the plaintext is returned once at generation time.
type Manager struct {
	store store.Store
}

// NewManager creates an API key manager backed by the store
func NewManager(s store.Store) *Manager {
	return &Manager{store: s}
}

// GenerateKey creates a new API key for a user and returns the plaintext
// secret alongside the stored record. expiresDays of zero means the key never
// expires.
func (m *Manager) GenerateKey(ctx context.Context, userID, name string, permissions []string, expiresDays int) (string, *schema.APIKey, error) {
	perms, err := domain.ParsePermissions(permissions)
	if err != nil {
		return "", nil, err
	}

	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("failed to generate key secret: %w", err)
	}
	secret := keyPrefix + base64.RawURLEncoding.EncodeToString(raw)

	key := &schema.APIKey{
		KeyHash:     HashKey(secret),
		UserID:      userID,
		Name:        name,
		Permissions: datatypes.JSONSlice[string](perms.Strings()),
		IsActive:    true,
	}
	if expiresDays > 0 {
		expiresAt := time.Now().UTC().AddDate(0, 0, expiresDays)
		key.ExpiresAt = &expiresAt
	}

	if err := m.store.CreateAPIKey(ctx, key); err != nil {
		return "", nil, err
	}

	logger.InfoCtx(ctx, "generated api key",
		zap.String("userID", userID),
		zap.String("name", name),
		zap.Strings("permissions", perms.Strings()))
	return secret, key, nil
}

// ValidateKey authenticates a plaintext secret and checks it grants the
// required permission. Returns domain errors for unknown, expired, and
// under-privileged keys.
func (m *Manager) ValidateKey(ctx context.Context, secret string, required domain.Permission) (*Identity, error) {
	if secret == "" {
		return nil, domain.ErrAPIKeyInvalid
	}

	key, err := m.store.GetAPIKeyByHash(ctx, HashKey(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}
	if key == nil || !key.IsActive {
		return nil, domain.ErrAPIKeyInvalid
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now().UTC()) {
		return nil, domain.ErrAPIKeyExpired
	}

	perms, err := domain.ParsePermissions(key.Permissions)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("api key carries unknown permission: %w", err),
			zap.Int64("keyID", key.ID))
		return nil, domain.ErrAPIKeyInvalid
	}
	if !perms.Has(required) && !perms.Has(domain.PermissionAdmin) {
		return nil, domain.ErrPermissionDenied
	}

	if err := m.store.TouchAPIKey(ctx, key.ID, time.Now().UTC()); err != nil {
		logger.WarnCtx(ctx, "failed to record api key usage",
			zap.Int64("keyID", key.ID), zap.Error(err))
	}

	return &Identity{
		KeyID:       key.ID,
		UserID:      key.UserID,
		Permissions: perms,
	}, nil
}

// RevokeKey deactivates a key by id
func (m *Manager) RevokeKey(ctx context.Context, id int64) error {
	found, err := m.store.RevokeAPIKey(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrAPIKeyNotFound
	}
	logger.InfoCtx(ctx, "revoked api key", zap.Int64("keyID", id))
	return nil
}

// ListKeys returns a user's keys, newest first
func (m *Manager) ListKeys(ctx context.Context, userID string, activeOnly bool) ([]*schema.APIKey, error) {
	return m.store.ListAPIKeys(ctx, userID, activeOnly)
}

// HashKey derives the stored digest of a plaintext secret
func HashKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SameHash compares two digests in constant time
func SameHash(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
