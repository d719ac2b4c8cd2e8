package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Event represents the events table - one immutable row per ingested behavioral event
type Event struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID is the globally unique event identifier; duplicate submissions must not create a second row
	EventID uuid.UUID `gorm:"column:event_id;not null;uniqueIndex;type:uuid"`
	// OccurredAt is the client-reported occurrence timestamp
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index;type:timestamptz"`
	// UserID identifies the end user the event belongs to
	UserID string `gorm:"column:user_id;not null;index;type:varchar(255)"`
	// EventType classifies the event (page_view, click, purchase, ...)
	EventType string `gorm:"column:event_type;not null;index;type:varchar(255)"`
	// Properties holds arbitrary client-supplied attributes
	Properties datatypes.JSONMap `gorm:"column:properties;type:jsonb"`
	// EventDate is the occurrence date denormalized from OccurredAt for date-partitioned queries
	EventDate time.Time `gorm:"column:event_date;not null;index;type:date"`
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "events"
}
