package domain

import (
	"time"

	"gorm.io/datatypes"
)

// MaintenanceRun records one pass of the maintenance jobs. Details holds the
// JSON report of the pass.
type MaintenanceRun struct {
	ID         int64          `json:"id" gorm:"primaryKey"`
	Trigger    string         `json:"trigger" gorm:"size:32;not null"`
	Success    bool           `json:"success" gorm:"not null"`
	StartedAt  time.Time      `json:"started_at" gorm:"not null;index"`
	FinishedAt time.Time      `json:"finished_at" gorm:"not null"`
	Details    datatypes.JSON `json:"details,omitempty"`
}

func (MaintenanceRun) TableName() string { return "maintenance_runs" }
