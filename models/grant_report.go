package models

import "time"

type ReportStatus string

const (
	ReportStatusUpcoming   ReportStatus = "upcoming"
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusOverdue    ReportStatus = "overdue"
	ReportStatusSubmitted  ReportStatus = "submitted"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusUpcoming, ReportStatusInProgress, ReportStatusOverdue, ReportStatusSubmitted:
		return true
	}
	return false
}

// GrantReport is a periodic report owed to the donor.
type GrantReport struct {
	ReportID      uint         `gorm:"primaryKey;column:report_id" json:"report_id"`
	GrantID       uint         `gorm:"column:grant_id;index;not null" json:"grant_id"`
	ReportType    string       `gorm:"column:report_type;size:100" json:"report_type"`
	DueDate       time.Time    `gorm:"column:due_date" json:"due_date"`
	Submitted     bool         `gorm:"column:submitted" json:"submitted"`
	Status        ReportStatus `gorm:"column:status;size:32;not null" json:"status"`
	SubmittedDate *time.Time   `gorm:"column:submitted_date" json:"submitted_date,omitempty"`
	FilePath      *string      `gorm:"column:file_path" json:"file_path,omitempty"`
	CreatedAt     time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (GrantReport) TableName() string {
	return "grant_reports"
}
