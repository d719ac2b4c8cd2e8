package dto

import "time"

// EventRequest is one event in an ingestion batch
type EventRequest struct {
	EventID    string                 `json:"event_id"`
	OccurredAt time.Time              `json:"occurred_at" binding:"required"`
	UserID     string                 `json:"user_id" binding:"required"`
	EventType  string                 `json:"event_type" binding:"required"`
	Properties map[string]interface{} `json:"properties"`
}

// IngestRequest is the batch ingestion request body
type IngestRequest struct {
	Events []EventRequest `json:"events" binding:"required"`
}

// CreateUserRequest is the user creation request body
type CreateUserRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// CreateAPIKeyRequest is the API key generation request body
type CreateAPIKeyRequest struct {
	UserID      string   `json:"user_id" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Permissions []string `json:"permissions" binding:"required"`
	ExpiresDays int      `json:"expires_days"`
}
