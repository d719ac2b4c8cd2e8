package schema

import (
	"time"

	"gorm.io/datatypes"
)

// APIKey represents the api_keys table. Only the sha256 hash of a key is
// stored; the plaintext is returned to the caller once at generation time.
type APIKey struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// KeyHash is the sha256 hex digest of the key secret
	KeyHash string `gorm:"column:key_hash;not null;uniqueIndex;type:varchar(255)"`
	// UserID is the owner of this key
	UserID string `gorm:"column:user_id;index:ix_api_keys_user_active,priority:1;type:varchar(255)"`
	// Name is a human-readable label for the key
	Name string `gorm:"column:name;type:varchar(255)"`
	// Permissions is the granted capability set, stored as a JSON array of strings
	Permissions datatypes.JSONSlice[string] `gorm:"column:permissions;type:jsonb"`
	// IsActive is false once a key has been revoked
	IsActive bool `gorm:"column:is_active;not null;default:true;index:ix_api_keys_user_active,priority:2"`
	// CreatedAt is when the key was generated
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// ExpiresAt is the optional expiry; nil keys never expire
	ExpiresAt *time.Time `gorm:"column:expires_at;type:timestamptz"`
	// LastUsed is bumped on every successful validation
	LastUsed *time.Time `gorm:"column:last_used;type:timestamptz"`
}

// TableName specifies the table name for the APIKey model
func (APIKey) TableName() string {
	return "api_keys"
}
