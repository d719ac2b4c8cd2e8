package schema

import "time"

// User represents the users table - a mutable summary record, one row per user identifier.
// Rows are created lazily on the first observed event and touched on every later batch.
type User struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID is the external user identifier, unique across the table
	UserID string `gorm:"column:user_id;not null;uniqueIndex;type:varchar(255)"`
	// Name is the display name; ingestion fills a placeholder until set explicitly
	Name string `gorm:"column:name;type:varchar(255)"`
	// Email is the contact address; ingestion fills a placeholder until set explicitly
	Email string `gorm:"column:email;type:varchar(255)"`
	// IsActive is refreshed to true whenever a batch contains this user
	IsActive bool `gorm:"column:is_active;not null;default:true"`
	// CreatedAt is when the row was first created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is bumped on every touch
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
