package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventfold/analytics/internal/domain"
	"github.com/eventfold/analytics/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// AutoMigrate creates or updates the tables owned by this service
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.User{},
		&schema.Event{},
		&schema.UserRetention{},
		&schema.APIKey{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults:
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// GORM translates these to ErrDuplicatedKey when TranslateError is enabled;
// the SQLSTATE check covers connections opened without it.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// calculateSafeBatchSize computes a bulk-insert batch size that stays under
// PostgreSQL's 65535-parameter limit for the extended protocol, with headroom
// for ON CONFLICT clauses and GORM bookkeeping.
func calculateSafeBatchSize(totalRecords, fieldsPerRecord int) int {
	const maxParams = 65535
	const totalHeadroom = 1000

	safeBatchSize := max((maxParams-totalHeadroom)/fieldsPerRecord, 1)
	if safeBatchSize > totalRecords {
		return totalRecords
	}
	return safeBatchSize
}

// CreateUser inserts a user row, failing with domain.ErrUserAlreadyExists on conflict
func (s *pgStore) CreateUser(ctx context.Context, userID, name, email string) (*schema.User, error) {
	user := schema.User{
		UserID:   userID,
		Name:     name,
		Email:    email,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// GetUser retrieves a user by external identifier; nil when absent
func (s *pgStore) GetUser(ctx context.Context, userID string) (*schema.User, error) {
	var user schema.User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ListUsers retrieves users, optionally only active ones, newest first
func (s *pgStore) ListUsers(ctx context.Context, activeOnly bool) ([]*schema.User, error) {
	query := s.db.WithContext(ctx).Model(&schema.User{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var users []*schema.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateAPIKey persists a new API key record
func (s *pgStore) CreateAPIKey(ctx context.Context, key *schema.APIKey) error {
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash retrieves an active key by its hash; nil when absent
func (s *pgStore) GetAPIKeyByHash(ctx context.Context, keyHash string) (*schema.APIKey, error) {
	var key schema.APIKey
	err := s.db.WithContext(ctx).
		Where("key_hash = ? AND is_active = ?", keyHash, true).
		First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}
	return &key, nil
}

// TouchAPIKey records the time a key was last used
func (s *pgStore) TouchAPIKey(ctx context.Context, id int64, usedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&schema.APIKey{}).
		Where("id = ?", id).
		Update("last_used", usedAt).Error
	if err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}

// RevokeAPIKey deactivates a key; reports whether the key existed
func (s *pgStore) RevokeAPIKey(ctx context.Context, id int64) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.APIKey{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return false, fmt.Errorf("failed to revoke api key: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListAPIKeys retrieves keys filtered by owner and activity, newest first
func (s *pgStore) ListAPIKeys(ctx context.Context, userID string, activeOnly bool) ([]*schema.APIKey, error) {
	query := s.db.WithContext(ctx).Model(&schema.APIKey{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var keys []*schema.APIKey
	if err := query.Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// upsertUsers atomically inserts missing user rows and touches existing ones.
// A single INSERT ... ON CONFLICT DO UPDATE per call keeps concurrent batches
// for the same new user race-free.
func upsertUsers(tx *gorm.DB, userIDs []string, now time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}

	users := make([]schema.User, len(userIDs))
	for i, id := range userIDs {
		users[i] = schema.User{
			UserID:    id,
			Name:      fmt.Sprintf("User_%s", id),
			Email:     fmt.Sprintf("%s@example.com", id),
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_active":  true,
			"updated_at": now,
		}),
	}).CreateInBatches(&users, calculateSafeBatchSize(len(users), 6)).Error
	if err != nil {
		return fmt.Errorf("failed to upsert users: %w", err)
	}
	return nil
}
