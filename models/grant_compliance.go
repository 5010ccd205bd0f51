package models

import "time"

type ComplianceStatus string

const (
	ComplianceStatusInProgress ComplianceStatus = "in_progress"
	ComplianceStatusCompleted  ComplianceStatus = "completed"
)

func (s ComplianceStatus) Valid() bool {
	return s == ComplianceStatusInProgress || s == ComplianceStatusCompleted
}

// GrantComplianceRequirement is a checklist item a grantee must satisfy.
type GrantComplianceRequirement struct {
	ComplianceID   uint             `gorm:"primaryKey;column:compliance_id" json:"compliance_id"`
	GrantID        uint             `gorm:"column:grant_id;index;not null" json:"grant_id"`
	Requirement    string           `gorm:"column:requirement;type:text;not null" json:"requirement"`
	DueDate        time.Time        `gorm:"column:due_date" json:"due_date"`
	Status         ComplianceStatus `gorm:"column:status;size:32;not null" json:"status"`
	EvidencePath   *string          `gorm:"column:evidence_path" json:"evidence_path,omitempty"`
	EvidenceFileID *uint            `gorm:"column:evidence_file_id" json:"evidence_file_id,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (GrantComplianceRequirement) TableName() string {
	return "grant_compliance_requirements"
}
