package dto

import (
	"time"

	"github.com/eventfold/analytics/internal/store/schema"
)

// UserResponse is the API representation of a user record
type UserResponse struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse maps a stored user to its API representation
func NewUserResponse(u *schema.User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		Name:      u.Name,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// APIKeyResponse is the API representation of a key record. The plaintext
// secret appears only in the creation response.
type APIKeyResponse struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
	Key         string     `json:"key,omitempty"`
}

// NewAPIKeyResponse maps a stored key to its API representation
func NewAPIKeyResponse(k *schema.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:          k.ID,
		UserID:      k.UserID,
		Name:        k.Name,
		Permissions: k.Permissions,
		IsActive:    k.IsActive,
		CreatedAt:   k.CreatedAt,
		ExpiresAt:   k.ExpiresAt,
		LastUsed:    k.LastUsed,
	}
}
