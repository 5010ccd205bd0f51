package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"grants-management-api/models"
)

// Display colors shared by status and urgency labels.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorOrange = "orange"
	ColorRed    = "red"
	ColorGray   = "gray"
	ColorBlue   = "blue"
)

// StatusColor maps a grant status to its display color. Unknown statuses
// fall back to gray.
func StatusColor(status models.GrantStatus) string {
	switch status {
	case models.GrantStatusActive:
		return ColorGreen
	case models.GrantStatusPending:
		return ColorYellow
	case models.GrantStatusOverdue, models.GrantStatusCancelled:
		return ColorRed
	case models.GrantStatusApplication:
		return ColorBlue
	case models.GrantStatusClosed:
		return ColorGray
	default:
		return ColorGray
	}
}

// UrgencyTier is a due-date derived category.
type UrgencyTier string

const (
	UrgencyOverdue  UrgencyTier = "Overdue"
	UrgencyCritical UrgencyTier = "Critical"
	UrgencyUrgent   UrgencyTier = "Urgent"
	UrgencyNormal   UrgencyTier = "Normal"
)

// Urgency is the tier and color for an item due in Days days.
type Urgency struct {
	Tier  UrgencyTier `json:"tier"`
	Color string      `json:"color"`
	Days  int         `json:"days"`
}

// UrgencyForDays partitions the integers: <0 Overdue, 0-3 Critical,
// 4-7 Urgent, >7 Normal.
func UrgencyForDays(days int) Urgency {
	switch {
	case days < 0:
		return Urgency{Tier: UrgencyOverdue, Color: ColorRed, Days: days}
	case days <= 3:
		return Urgency{Tier: UrgencyCritical, Color: ColorOrange, Days: days}
	case days <= 7:
		return Urgency{Tier: UrgencyUrgent, Color: ColorYellow, Days: days}
	default:
		return Urgency{Tier: UrgencyNormal, Color: ColorGreen, Days: days}
	}
}

// DaysUntil is ceil((due - now) / 24h).
func DaysUntil(due, now time.Time) int {
	diff := due.Sub(now)
	return int(math.Ceil(float64(diff) / float64(24*time.Hour)))
}

// UrgencyFor classifies a due date relative to now.
func UrgencyFor(due, now time.Time) Urgency {
	return UrgencyForDays(DaysUntil(due, now))
}

// ParseDueDate accepts YYYY-MM-DD (midnight UTC) or RFC 3339.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q", raw)
	}
	return t, nil
}

// UrgencyFromDueDate classifies an ISO due date relative to now.
func UrgencyFromDueDate(dueDateISO string, now time.Time) (Urgency, error) {
	due, err := ParseDueDate(dueDateISO)
	if err != nil {
		return Urgency{}, err
	}
	return UrgencyFor(due, now), nil
}

// DeriveReportStatus returns the status a report should display: submitted
// wins, an unsubmitted report past its due date is overdue, anything else
// keeps its stored status.
func DeriveReportStatus(report models.GrantReport, now time.Time) models.ReportStatus {
	if report.Submitted {
		return models.ReportStatusSubmitted
	}
	if DaysUntil(report.DueDate, now) < 0 {
		return models.ReportStatusOverdue
	}
	switch report.Status {
	case models.ReportStatusUpcoming, models.ReportStatusInProgress:
		return report.Status
	}
	return models.ReportStatusUpcoming
}
