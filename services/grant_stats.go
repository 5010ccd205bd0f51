package services

import (
	"fmt"

	"grants-management-api/models"

	"github.com/shopspring/decimal"
)

// AllSubmittedLabel is the reporting status of a grant with nothing due.
const AllSubmittedLabel = "All Submitted"

var hundred = decimal.NewFromInt(100)

// GrantWithStats is a grant with its read-time statistics joined on.
type GrantWithStats struct {
	models.Grant
	ComplianceRate   int    `json:"compliance_rate"`
	DisbursementRate int    `json:"disbursement_rate"`
	ReportingStatus  string `json:"reporting_status"`
	StatusColor      string `json:"status_color"`
}

// percent is round-half-up(100 * num / den) clamped to [0,100], and 0
// when den is not positive.
func percent(num, den decimal.Decimal) int {
	if !den.IsPositive() || !num.IsPositive() {
		return 0
	}
	rate := num.Mul(hundred).Div(den).Round(0).IntPart()
	if rate > 100 {
		return 100
	}
	return int(rate)
}

// ComplianceRate is the share of completed requirements.
func ComplianceRate(reqs []models.GrantComplianceRequirement) int {
	completed := 0
	for _, r := range reqs {
		if r.Status == models.ComplianceStatusCompleted {
			completed++
		}
	}
	return percent(decimal.NewFromInt(int64(completed)), decimal.NewFromInt(int64(len(reqs))))
}

// DisbursementRate is the released amount over the total scheduled amount.
func DisbursementRate(ds []models.GrantDisbursement) int {
	released, total := decimal.Zero, decimal.Zero
	for _, d := range ds {
		total = total.Add(d.Amount)
		if d.Status == models.DisbursementStatusReleased {
			released = released.Add(d.Amount)
		}
	}
	return percent(released, total)
}

// ReportingStatus summarizes outstanding reports.
func ReportingStatus(reports []models.GrantReport) string {
	due := 0
	for _, r := range reports {
		if !r.Submitted {
			due++
		}
	}
	switch due {
	case 0:
		return AllSubmittedLabel
	case 1:
		return "1 Report Due"
	default:
		return fmt.Sprintf("%d Reports Due", due)
	}
}

// NewGrantWithStats computes the statistics of one grant from its children.
func NewGrantWithStats(g models.Grant, reqs []models.GrantComplianceRequirement, ds []models.GrantDisbursement, reports []models.GrantReport) GrantWithStats {
	return GrantWithStats{
		Grant:            g,
		ComplianceRate:   ComplianceRate(reqs),
		DisbursementRate: DisbursementRate(ds),
		ReportingStatus:  ReportingStatus(reports),
		StatusColor:      StatusColor(g.Status),
	}
}

// grantChildren holds the child rows of one grant.
type grantChildren struct {
	compliance    []models.GrantComplianceRequirement
	disbursements []models.GrantDisbursement
	reports       []models.GrantReport
}

// groupChildren buckets batched child rows by their grant id.
func groupChildren(reqs []models.GrantComplianceRequirement, ds []models.GrantDisbursement, reports []models.GrantReport) map[uint]*grantChildren {
	byGrant := make(map[uint]*grantChildren)
	get := func(id uint) *grantChildren {
		c, ok := byGrant[id]
		if !ok {
			c = &grantChildren{}
			byGrant[id] = c
		}
		return c
	}
	for _, r := range reqs {
		c := get(r.GrantID)
		c.compliance = append(c.compliance, r)
	}
	for _, d := range ds {
		c := get(d.GrantID)
		c.disbursements = append(c.disbursements, d)
	}
	for _, r := range reports {
		c := get(r.GrantID)
		c.reports = append(c.reports, r)
	}
	return byGrant
}

// JoinGrantStats groups child rows by grant and joins stats onto each
// grant, keeping the order of grants.
func JoinGrantStats(grants []models.Grant, reqs []models.GrantComplianceRequirement, ds []models.GrantDisbursement, reports []models.GrantReport) []GrantWithStats {
	byGrant := groupChildren(reqs, ds, reports)

	out := make([]GrantWithStats, 0, len(grants))
	for _, g := range grants {
		c := byGrant[g.GrantID]
		if c == nil {
			c = &grantChildren{}
		}
		out = append(out, NewGrantWithStats(g, c.compliance, c.disbursements, c.reports))
	}
	return out
}
