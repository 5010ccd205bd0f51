package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"grants-management-api/config"
	"grants-management-api/models"
	"grants-management-api/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoFileStore       = errors.New("file storage is not configured")
)

// MaxAttachmentSize bounds evidence and report uploads.
const MaxAttachmentSize int64 = 10 << 20

// ComplianceItem is a compliance requirement with its urgency. Urgency is
// only set while the requirement is still in progress.
type ComplianceItem struct {
	models.GrantComplianceRequirement
	Urgency *Urgency `json:"urgency,omitempty"`
}

// DisbursementItem is a disbursement with its urgency while pending.
type DisbursementItem struct {
	models.GrantDisbursement
	Urgency *Urgency `json:"urgency,omitempty"`
}

// ReportItem is a report with its derived status and, while unsubmitted,
// its urgency.
type ReportItem struct {
	models.GrantReport
	Urgency *Urgency `json:"urgency,omitempty"`
}

// GrantDetail is one grant with stats and every child record.
type GrantDetail struct {
	GrantWithStats
	Compliance    []ComplianceItem   `json:"compliance"`
	Disbursements []DisbursementItem `json:"disbursements"`
	Reports       []ReportItem       `json:"reports"`
}

type GrantService struct {
	repo  GrantRepository
	files config.FileStore
	now   func() time.Time
	log   *logrus.Entry
}

func NewGrantService(repo GrantRepository, files config.FileStore) *GrantService {
	if repo == nil {
		repo = NewGormGrantRepository(nil)
	}
	return &GrantService{
		repo:  repo,
		files: files,
		now:   time.Now,
		log:   config.Logger().WithField("module", "grant_service"),
	}
}

// WithClock replaces the clock used for urgency and write timestamps.
func (s *GrantService) WithClock(now func() time.Time) *GrantService {
	s.now = now
	return s
}

func (s *GrantService) Now() time.Time {
	return s.now()
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func validateInput(v interface{}) error {
	if err := utils.ValidateStruct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// ListGrants fetches the grants matching filter and joins their stats.
// Child rows are fetched with one query per kind.
func (s *GrantService) ListGrants(ctx context.Context, filter GrantFilter) ([]GrantWithStats, error) {
	q := filter.Normalize()

	grants, err := s.repo.FetchGrants(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	if len(grants) == 0 {
		return []GrantWithStats{}, nil
	}

	ids := make([]uint, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.GrantID)
	}

	reqs, err := s.repo.FetchCompliance(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	ds, err := s.repo.FetchDisbursements(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	reports, err := s.repo.FetchReports(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}

	return JoinGrantStats(grants, reqs, ds, reports), nil
}

// GetGrant returns one grant with its stats and annotated child records.
func (s *GrantService) GetGrant(ctx context.Context, id uint) (*GrantDetail, error) {
	grant, err := s.repo.FetchGrant(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := []uint{grant.GrantID}
	reqs, err := s.repo.FetchCompliance(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get grant %d: %w", id, err)
	}
	ds, err := s.repo.FetchDisbursements(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get grant %d: %w", id, err)
	}
	reports, err := s.repo.FetchReports(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get grant %d: %w", id, err)
	}

	return buildGrantDetail(*grant, reqs, ds, reports, s.now()), nil
}

// ListGrantDetails is ListGrants with every child record attached.
func (s *GrantService) ListGrantDetails(ctx context.Context, filter GrantFilter) ([]*GrantDetail, error) {
	grants, err := s.repo.FetchGrants(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list grant details: %w", err)
	}
	if len(grants) == 0 {
		return nil, nil
	}

	ids := make([]uint, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.GrantID)
	}
	reqs, err := s.repo.FetchCompliance(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list grant details: %w", err)
	}
	ds, err := s.repo.FetchDisbursements(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list grant details: %w", err)
	}
	reports, err := s.repo.FetchReports(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list grant details: %w", err)
	}

	byGrant := groupChildren(reqs, ds, reports)
	now := s.now()
	details := make([]*GrantDetail, 0, len(grants))
	for _, g := range grants {
		c := byGrant[g.GrantID]
		if c == nil {
			c = &grantChildren{}
		}
		details = append(details, buildGrantDetail(g, c.compliance, c.disbursements, c.reports, now))
	}
	return details, nil
}

func buildGrantDetail(g models.Grant, reqs []models.GrantComplianceRequirement, ds []models.GrantDisbursement, reports []models.GrantReport, now time.Time) *GrantDetail {
	detail := &GrantDetail{
		GrantWithStats: NewGrantWithStats(g, reqs, ds, reports),
		Compliance:     make([]ComplianceItem, 0, len(reqs)),
		Disbursements:  make([]DisbursementItem, 0, len(ds)),
		Reports:        make([]ReportItem, 0, len(reports)),
	}

	for _, c := range reqs {
		item := ComplianceItem{GrantComplianceRequirement: c}
		if c.Status == models.ComplianceStatusInProgress {
			u := UrgencyFor(c.DueDate, now)
			item.Urgency = &u
		}
		detail.Compliance = append(detail.Compliance, item)
	}
	for _, d := range ds {
		item := DisbursementItem{GrantDisbursement: d}
		if d.Status == models.DisbursementStatusPending {
			u := UrgencyFor(d.DueDate, now)
			item.Urgency = &u
		}
		detail.Disbursements = append(detail.Disbursements, item)
	}
	for _, r := range reports {
		r.Status = DeriveReportStatus(r, now)
		item := ReportItem{GrantReport: r}
		if !r.Submitted {
			u := UrgencyFor(r.DueDate, now)
			item.Urgency = &u
		}
		detail.Reports = append(detail.Reports, item)
	}
	return detail
}

// GrantInput is the body of a grant create or update.
type GrantInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	DonorName   string          `json:"donor_name" validate:"required,max=255"`
	Status      string          `json:"status" validate:"required"`
	Region      string          `json:"region" validate:"max=100"`
	ProgramArea string          `json:"program_area" validate:"max=100"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3,alpha"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Description *string         `json:"description"`
}

func parseOptionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseDueDate(raw)
	if err != nil {
		return nil, invalid("%s: %v", field, err)
	}
	return &t, nil
}

func parseRequiredDate(field, raw string) (time.Time, error) {
	t, err := ParseDueDate(raw)
	if err != nil {
		return time.Time{}, invalid("%s: %v", field, err)
	}
	return t, nil
}

// apply validates in and copies it onto g.
func (in GrantInput) apply(g *models.Grant) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if !utils.IsKnownGrantStatus(in.Status) {
		return invalid("unknown grant status %q", in.Status)
	}
	status := utils.NormalizeGrantStatus(in.Status)
	if in.Amount.IsNegative() {
		return invalid("amount must not be negative")
	}
	start, err := parseOptionalDate("start_date", in.StartDate)
	if err != nil {
		return err
	}
	end, err := parseOptionalDate("end_date", in.EndDate)
	if err != nil {
		return err
	}
	if start != nil && end != nil && end.Before(*start) {
		return invalid("end_date is before start_date")
	}

	g.Name = utils.SanitizeInput(in.Name)
	g.DonorName = utils.SanitizeInput(in.DonorName)
	g.Status = status
	g.Region = strings.TrimSpace(in.Region)
	g.ProgramArea = strings.TrimSpace(in.ProgramArea)
	g.Amount = in.Amount.Round(2)
	g.Currency = strings.ToUpper(in.Currency)
	g.StartDate = start
	g.EndDate = end
	g.Description = in.Description
	return nil
}

func (s *GrantService) CreateGrant(ctx context.Context, in GrantInput) (*models.Grant, error) {
	var grant models.Grant
	if err := in.apply(&grant); err != nil {
		return nil, err
	}
	if err := s.repo.CreateGrant(ctx, &grant); err != nil {
		return nil, fmt.Errorf("create grant: %w", err)
	}
	s.log.WithFields(logrus.Fields{"grant_id": grant.GrantID, "status": grant.Status}).Info("grant created")
	return &grant, nil
}

func (s *GrantService) UpdateGrant(ctx context.Context, id uint, in GrantInput) (*models.Grant, error) {
	grant, err := s.repo.FetchGrant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(grant); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateGrant(ctx, grant); err != nil {
		return nil, fmt.Errorf("update grant %d: %w", id, err)
	}
	s.log.WithFields(logrus.Fields{"grant_id": id, "status": grant.Status}).Info("grant updated")
	return grant, nil
}

// requireGrant turns a missing parent into ErrGrantNotFound before a child
// insert trips the foreign key.
func (s *GrantService) requireGrant(ctx context.Context, id uint) error {
	_, err := s.repo.FetchGrant(ctx, id)
	return err
}

func (s *GrantService) DeleteGrant(ctx context.Context, id uint) error {
	if err := s.repo.DeleteGrant(ctx, id); err != nil {
		return err
	}
	s.log.WithField("grant_id", id).Info("grant deleted")
	return nil
}

type ComplianceInput struct {
	Requirement string `json:"requirement" validate:"required,max=500"`
	DueDate     string `json:"due_date" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=in_progress completed"`
}

func (s *GrantService) AddCompliance(ctx context.Context, grantID uint, in ComplianceInput) (*models.GrantComplianceRequirement, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	due, err := parseRequiredDate("due_date", in.DueDate)
	if err != nil {
		return nil, err
	}
	status := models.ComplianceStatusInProgress
	if in.Status != "" {
		status = models.ComplianceStatus(in.Status)
	}

	if err := s.requireGrant(ctx, grantID); err != nil {
		return nil, err
	}

	req := models.GrantComplianceRequirement{
		GrantID:     grantID,
		Requirement: utils.SanitizeInput(in.Requirement),
		DueDate:     due,
		Status:      status,
	}
	if err := s.repo.CreateCompliance(ctx, &req); err != nil {
		return nil, fmt.Errorf("add compliance to grant %d: %w", grantID, err)
	}
	return &req, nil
}

func (s *GrantService) SetComplianceStatus(ctx context.Context, id uint, status string) (*models.GrantComplianceRequirement, error) {
	next := models.ComplianceStatus(strings.ToLower(strings.TrimSpace(status)))
	if !next.Valid() {
		return nil, invalid("unknown compliance status %q", status)
	}
	req, err := s.repo.FetchComplianceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Status = next
	if err := s.repo.UpdateCompliance(ctx, req); err != nil {
		return nil, fmt.Errorf("update compliance %d: %w", id, err)
	}
	return req, nil
}

// Upload is a file handed to the service by a controller or command.
type Upload struct {
	Filename    string    `validate:"required"`
	ContentType string    `validate:"required"`
	Size        int64     `validate:"gt=0"`
	Reader      io.Reader `validate:"required"`
	UploadedBy  int
}

// storeAttachment saves the upload and records its metadata. Once the
// bytes are stored the metadata write is no longer tied to the caller's
// cancellation.
func (s *GrantService) storeAttachment(ctx context.Context, folder string, up Upload) (*models.FileUpload, context.Context, error) {
	if err := validateInput(up); err != nil {
		return nil, ctx, err
	}
	if up.Size > MaxAttachmentSize {
		return nil, ctx, invalid("file is %d bytes, limit is %d", up.Size, MaxAttachmentSize)
	}
	meta := models.FileUpload{
		OriginalName: up.Filename,
		FolderType:   folder,
		FileSize:     up.Size,
		MimeType:     strings.ToLower(strings.TrimSpace(up.ContentType)),
		UploadedBy:   up.UploadedBy,
	}
	if !meta.IsAllowedAttachment() {
		return nil, ctx, invalid("file type %q is not allowed", up.ContentType)
	}
	if s.files == nil {
		return nil, ctx, ErrNoFileStore
	}

	stored, err := s.files.Save(ctx, folder, up.Filename, up.Reader, meta.MimeType)
	if err != nil {
		return nil, ctx, fmt.Errorf("store %s: %w", up.Filename, err)
	}

	wctx := persistentContext(ctx)
	now := s.now()
	meta.StoredPath = stored
	meta.UploadedAt = now
	meta.CreateAt = now
	meta.UpdateAt = now
	if err := s.repo.CreateFileUpload(wctx, &meta); err != nil {
		config.LogError("grant_service", "storeAttachment", logrus.Fields{"stored_path": stored}, err)
		if derr := s.files.Delete(wctx, stored); derr != nil {
			s.log.WithError(derr).WithField("stored_path", stored).Warn("orphaned upload left in storage")
		}
		return nil, wctx, fmt.Errorf("record upload: %w", err)
	}
	return &meta, wctx, nil
}

// Attachment is a stored file opened for download. The caller closes Body.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

func (s *GrantService) openAttachment(ctx context.Context, storedPath string) (*Attachment, error) {
	if s.files == nil {
		return nil, ErrNoFileStore
	}
	meta, err := s.repo.FetchFileUploadByPath(ctx, storedPath)
	if err != nil {
		return nil, err
	}
	body, err := s.files.Open(ctx, storedPath)
	if errors.Is(err, config.ErrStoredFileNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, meta.OriginalName)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", storedPath, err)
	}
	return &Attachment{
		Filename:    meta.OriginalName,
		ContentType: meta.MimeType,
		Size:        meta.FileSize,
		Body:        body,
	}, nil
}

// OpenComplianceEvidence opens the evidence file attached to a requirement.
func (s *GrantService) OpenComplianceEvidence(ctx context.Context, id uint) (*Attachment, error) {
	req, err := s.repo.FetchComplianceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.EvidencePath == nil {
		return nil, fmt.Errorf("%w: compliance %d has no evidence", ErrFileNotFound, id)
	}
	return s.openAttachment(ctx, *req.EvidencePath)
}

// OpenReportFile opens the file submitted with a report.
func (s *GrantService) OpenReportFile(ctx context.Context, id uint) (*Attachment, error) {
	r, err := s.repo.FetchReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.FilePath == nil {
		return nil, fmt.Errorf("%w: report %d has no file", ErrFileNotFound, id)
	}
	return s.openAttachment(ctx, *r.FilePath)
}

// AttachComplianceEvidence stores the evidence file and links it to the
// requirement.
func (s *GrantService) AttachComplianceEvidence(ctx context.Context, id uint, up Upload) (*models.GrantComplianceRequirement, error) {
	req, err := s.repo.FetchComplianceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	file, wctx, err := s.storeAttachment(ctx, "compliance", up)
	if err != nil {
		return nil, err
	}
	req.EvidencePath = &file.StoredPath
	req.EvidenceFileID = &file.FileID
	if err := s.repo.UpdateCompliance(wctx, req); err != nil {
		return nil, fmt.Errorf("attach evidence to compliance %d: %w", id, err)
	}
	s.log.WithFields(logrus.Fields{"compliance_id": id, "file_id": file.FileID}).Info("compliance evidence attached")
	return req, nil
}

type DisbursementInput struct {
	Milestone string          `json:"milestone" validate:"required,max=255"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" validate:"required,len=3,alpha"`
	DueDate   string          `json:"due_date" validate:"required"`
}

func (s *GrantService) AddDisbursement(ctx context.Context, grantID uint, in DisbursementInput) (*models.GrantDisbursement, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount must be positive")
	}
	due, err := parseRequiredDate("due_date", in.DueDate)
	if err != nil {
		return nil, err
	}

	if err := s.requireGrant(ctx, grantID); err != nil {
		return nil, err
	}

	d := models.GrantDisbursement{
		GrantID:   grantID,
		Milestone: utils.SanitizeInput(in.Milestone),
		Amount:    in.Amount.Round(2),
		Currency:  strings.ToUpper(in.Currency),
		DueDate:   due,
		Status:    models.DisbursementStatusPending,
	}
	if err := s.repo.CreateDisbursement(ctx, &d); err != nil {
		return nil, fmt.Errorf("add disbursement to grant %d: %w", grantID, err)
	}
	return &d, nil
}

func (s *GrantService) transitionDisbursement(ctx context.Context, id uint, next models.DisbursementStatus) (*models.GrantDisbursement, error) {
	d, err := s.repo.FetchDisbursementByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != models.DisbursementStatusPending {
		return nil, fmt.Errorf("%w: disbursement %d is %s", ErrInvalidTransition, id, d.Status)
	}
	d.Status = next
	if next == models.DisbursementStatusReleased {
		on := s.now()
		d.DisbursedOn = &on
	}
	if err := s.repo.UpdateDisbursement(ctx, d); err != nil {
		return nil, fmt.Errorf("update disbursement %d: %w", id, err)
	}
	s.log.WithFields(logrus.Fields{"disbursement_id": id, "status": next}).Info("disbursement updated")
	return d, nil
}

// ReleaseDisbursement marks a pending disbursement released today.
func (s *GrantService) ReleaseDisbursement(ctx context.Context, id uint) (*models.GrantDisbursement, error) {
	return s.transitionDisbursement(ctx, id, models.DisbursementStatusReleased)
}

func (s *GrantService) CancelDisbursement(ctx context.Context, id uint) (*models.GrantDisbursement, error) {
	return s.transitionDisbursement(ctx, id, models.DisbursementStatusCancelled)
}

type ReportInput struct {
	ReportType string `json:"report_type" validate:"required,max=100"`
	DueDate    string `json:"due_date" validate:"required"`
}

func (s *GrantService) AddReport(ctx context.Context, grantID uint, in ReportInput) (*models.GrantReport, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	due, err := parseRequiredDate("due_date", in.DueDate)
	if err != nil {
		return nil, err
	}

	if err := s.requireGrant(ctx, grantID); err != nil {
		return nil, err
	}

	r := models.GrantReport{
		GrantID:    grantID,
		ReportType: utils.SanitizeInput(in.ReportType),
		DueDate:    due,
		Status:     models.ReportStatusUpcoming,
	}
	if err := s.repo.CreateReport(ctx, &r); err != nil {
		return nil, fmt.Errorf("add report to grant %d: %w", grantID, err)
	}
	return &r, nil
}

// SubmitReport marks a report submitted, storing the attached file when
// one is given.
func (s *GrantService) SubmitReport(ctx context.Context, id uint, up *Upload) (*models.GrantReport, error) {
	r, err := s.repo.FetchReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Submitted {
		return nil, fmt.Errorf("%w: report %d is already submitted", ErrInvalidTransition, id)
	}

	wctx := ctx
	if up != nil {
		file, c, err := s.storeAttachment(ctx, "reports", *up)
		if err != nil {
			return nil, err
		}
		wctx = c
		r.FilePath = &file.StoredPath
	}

	now := s.now()
	r.Submitted = true
	r.Status = models.ReportStatusSubmitted
	r.SubmittedDate = &now
	if err := s.repo.UpdateReport(wctx, r); err != nil {
		return nil, fmt.Errorf("submit report %d: %w", id, err)
	}
	s.log.WithField("report_id", id).Info("report submitted")
	return r, nil
}
