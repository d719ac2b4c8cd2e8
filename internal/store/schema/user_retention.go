package schema

import "time"

// UserRetention represents the user_retention table - one derived fact per
// (user, cohort date, activity date) triple. Rows are inserted-if-absent within
// the same transaction as the event insert and never updated in place.
type UserRetention struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserID identifies the user this fact belongs to
	UserID string `gorm:"column:user_id;not null;index;type:varchar(255);uniqueIndex:idx_user_cohort_activity,priority:1"`
	// CohortDate is the date of the user's earliest recorded event
	CohortDate time.Time `gorm:"column:cohort_date;not null;index;type:date;uniqueIndex:idx_user_cohort_activity,priority:2"`
	// ActivityDate is the date of the observed event
	ActivityDate time.Time `gorm:"column:activity_date;not null;index;type:date;uniqueIndex:idx_user_cohort_activity,priority:3"`
	// RetentionDay is ActivityDate minus CohortDate in whole days
	RetentionDay int `gorm:"column:retention_day;not null"`
}

// TableName specifies the table name for the UserRetention model
func (UserRetention) TableName() string {
	return "user_retention"
}
