package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobRunModel keeps the last run of each job, one row per job name.
type JobRunModel struct {
	ID           uint           `gorm:"primaryKey;autoIncrement"`
	JobName      string         `gorm:"column:job_name;type:varchar(64);not null;uniqueIndex"`
	RunID        string         `gorm:"column:run_id;type:char(36);not null"`
	Trigger      string         `gorm:"column:trigger_type;type:varchar(16);not null"`
	StartedAt    time.Time      `gorm:"column:started_at;not null"`
	FinishedAt   *time.Time     `gorm:"column:finished_at"`
	DurationMs   int64          `gorm:"column:duration_ms"`
	Success      bool           `gorm:"column:success"`
	ErrorMessage string         `gorm:"column:error_message;type:text"`
	Details      datatypes.JSON `gorm:"column:details"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (JobRunModel) TableName() string {
	return "job_runs"
}
