package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"time"

	"grants-management-api/config"
	"grants-management-api/models"
	"grants-management-api/utils"

	"github.com/sirupsen/logrus"
)

// Mailer delivers an HTML message.
type Mailer interface {
	Send(to []string, subject, html string) error
}

// MailerFunc adapts a function such as config.SendMail to Mailer.
type MailerFunc func(to []string, subject, html string) error

func (f MailerFunc) Send(to []string, subject, html string) error {
	return f(to, subject, html)
}

type ReminderKind string

const (
	ReminderCompliance   ReminderKind = "Compliance"
	ReminderDisbursement ReminderKind = "Disbursement"
	ReminderReport       ReminderKind = "Report"
)

// ReminderItem is one record whose due date needs attention.
type ReminderItem struct {
	GrantID   uint
	GrantName string
	Kind      ReminderKind
	Title     string
	DueDate   time.Time
	Urgency   Urgency
}

type ReminderDigest struct {
	GeneratedAt time.Time
	Items       []ReminderItem
}

// ReminderService mails a digest of overdue and critical items.
type ReminderService struct {
	grants *GrantService
	mailer Mailer
	log    *logrus.Entry
}

func NewReminderService(grants *GrantService, mailer Mailer) *ReminderService {
	if mailer == nil {
		mailer = MailerFunc(config.SendMail)
	}
	return &ReminderService{
		grants: grants,
		mailer: mailer,
		log:    config.Logger().WithField("module", "reminder_service"),
	}
}

func needsReminder(u *Urgency) bool {
	return u != nil && (u.Tier == UrgencyOverdue || u.Tier == UrgencyCritical)
}

// Collect gathers the overdue and critical items of every grant that is
// not closed or cancelled, soonest due first.
func (s *ReminderService) Collect(ctx context.Context) (*ReminderDigest, error) {
	details, err := s.grants.ListGrantDetails(ctx, DefaultGrantFilter())
	if err != nil {
		return nil, err
	}

	digest := &ReminderDigest{GeneratedAt: s.grants.Now()}
	for _, d := range details {
		if d.Status == models.GrantStatusClosed || d.Status == models.GrantStatusCancelled {
			continue
		}
		for _, c := range d.Compliance {
			if needsReminder(c.Urgency) {
				digest.Items = append(digest.Items, ReminderItem{d.GrantID, d.Name, ReminderCompliance, c.Requirement, c.DueDate, *c.Urgency})
			}
		}
		for _, ds := range d.Disbursements {
			if needsReminder(ds.Urgency) {
				title := fmt.Sprintf("%s (%s)", ds.Milestone, utils.FormatAmount(ds.Amount, ds.Currency))
				digest.Items = append(digest.Items, ReminderItem{d.GrantID, d.Name, ReminderDisbursement, title, ds.DueDate, *ds.Urgency})
			}
		}
		for _, r := range d.Reports {
			if needsReminder(r.Urgency) {
				digest.Items = append(digest.Items, ReminderItem{d.GrantID, d.Name, ReminderReport, r.ReportType, r.DueDate, *r.Urgency})
			}
		}
	}

	sort.SliceStable(digest.Items, func(i, j int) bool {
		a, b := digest.Items[i], digest.Items[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.GrantID < b.GrantID
	})
	return digest, nil
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"date": utils.FormatDate,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Grant deadlines</title></head>
<body style="margin:0;padding:0;background-color:#f9fafb;font-family:'Segoe UI',Tahoma,Arial,sans-serif;">
<div style="max-width:720px;margin:0 auto;padding:24px 20px;">
<h1 style="font-size:22px;color:#111827;">Grant deadlines needing attention</h1>
<p style="color:#6b7280;font-size:13px;">Generated {{date .GeneratedAt}}</p>
<table role="presentation" cellpadding="0" cellspacing="0" width="100%" style="border:1px solid #e5e7eb;border-collapse:collapse;">
<thead><tr>
<th align="left" style="padding:8px 12px;">Grant</th>
<th align="left" style="padding:8px 12px;">Type</th>
<th align="left" style="padding:8px 12px;">Item</th>
<th align="left" style="padding:8px 12px;">Due</th>
<th align="left" style="padding:8px 12px;">Urgency</th>
</tr></thead>
<tbody>
{{range .Items}}<tr style="border-top:1px solid #e5e7eb;">
<td style="padding:8px 12px;">{{.GrantName}}</td>
<td style="padding:8px 12px;">{{.Kind}}</td>
<td style="padding:8px 12px;">{{.Title}}</td>
<td style="padding:8px 12px;">{{date .DueDate}}</td>
<td style="padding:8px 12px;color:{{.Urgency.Color}};font-weight:600;">{{.Urgency.Tier}}</td>
</tr>
{{end}}</tbody>
</table>
</div>
</body>
</html>`))

// RenderHTML renders the digest as an HTML email body.
func RenderHTML(d *ReminderDigest) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// Send collects the digest and mails it. Nothing is sent when no item is
// due. Once collected, the digest is sent even if ctx is cancelled.
func (s *ReminderService) Send(ctx context.Context, to []string) (*ReminderDigest, error) {
	digest, err := s.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if len(digest.Items) == 0 || len(to) == 0 {
		s.log.WithField("items", len(digest.Items)).Info("no reminder sent")
		return digest, nil
	}

	body, err := RenderHTML(digest)
	if err != nil {
		return nil, err
	}
	subject := fmt.Sprintf("Grant deadlines: %d item(s) need attention", len(digest.Items))
	if err := s.mailer.Send(to, subject, body); err != nil {
		config.LogError("reminder_service", "Send", logrus.Fields{"recipients": len(to)}, err)
		return digest, fmt.Errorf("send digest: %w", err)
	}
	s.log.WithFields(logrus.Fields{"items": len(digest.Items), "recipients": len(to)}).Info("reminder digest sent")
	return digest, nil
}
