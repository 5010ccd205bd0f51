package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DisbursementStatus string

const (
	DisbursementStatusPending   DisbursementStatus = "pending"
	DisbursementStatusReleased  DisbursementStatus = "released"
	DisbursementStatusCancelled DisbursementStatus = "cancelled"
)

func (s DisbursementStatus) Valid() bool {
	switch s {
	case DisbursementStatusPending, DisbursementStatusReleased, DisbursementStatusCancelled:
		return true
	}
	return false
}

// GrantDisbursement is a scheduled or completed payment milestone.
type GrantDisbursement struct {
	DisbursementID uint               `gorm:"primaryKey;column:disbursement_id" json:"disbursement_id"`
	GrantID        uint               `gorm:"column:grant_id;index;not null" json:"grant_id"`
	Milestone      string             `gorm:"column:milestone;size:255" json:"milestone"`
	Amount         decimal.Decimal    `gorm:"column:amount;type:decimal(20,2);default:0" json:"amount"`
	Currency       string             `gorm:"column:currency;size:3" json:"currency"`
	DueDate        time.Time          `gorm:"column:due_date" json:"due_date"`
	DisbursedOn    *time.Time         `gorm:"column:disbursed_on" json:"disbursed_on,omitempty"`
	Status         DisbursementStatus `gorm:"column:status;size:32;not null" json:"status"`
	CreatedAt      time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (GrantDisbursement) TableName() string {
	return "grant_disbursements"
}
