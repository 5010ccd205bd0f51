package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GrantStatus is the lifecycle state of a grant.
type GrantStatus string

const (
	GrantStatusApplication GrantStatus = "application"
	GrantStatusPending     GrantStatus = "pending"
	GrantStatusActive      GrantStatus = "active"
	GrantStatusOverdue     GrantStatus = "overdue"
	GrantStatusClosed      GrantStatus = "closed"
	GrantStatusCancelled   GrantStatus = "cancelled"
)

// GrantStatuses lists every valid grant status in display order.
var GrantStatuses = []GrantStatus{
	GrantStatusApplication,
	GrantStatusPending,
	GrantStatusActive,
	GrantStatusOverdue,
	GrantStatusClosed,
	GrantStatusCancelled,
}

func (s GrantStatus) Valid() bool {
	for _, status := range GrantStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Grant represents the grants table.
type Grant struct {
	GrantID     uint            `gorm:"primaryKey;column:grant_id" json:"grant_id"`
	Name        string          `gorm:"column:name;size:255;not null" json:"name"`
	DonorName   string          `gorm:"column:donor_name;size:255;index" json:"donor_name"`
	Status      GrantStatus     `gorm:"column:status;size:32;index;not null" json:"status"`
	Region      string          `gorm:"column:region;size:100;index" json:"region"`
	ProgramArea string          `gorm:"column:program_area;size:100;index" json:"program_area"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,2);default:0" json:"amount"`
	Currency    string          `gorm:"column:currency;size:3" json:"currency"`
	StartDate   *time.Time      `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate     *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	Description *string         `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`

	// Child rows are removed by the store when the grant is deleted.
	ComplianceRequirements []GrantComplianceRequirement `gorm:"foreignKey:GrantID;references:GrantID;constraint:OnDelete:CASCADE" json:"-"`
	Disbursements          []GrantDisbursement          `gorm:"foreignKey:GrantID;references:GrantID;constraint:OnDelete:CASCADE" json:"-"`
	Reports                []GrantReport                `gorm:"foreignKey:GrantID;references:GrantID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for Grant
func (Grant) TableName() string {
	return "grants"
}
