package services

import (
	"context"
	"errors"
	"fmt"

	"grants-management-api/config"
	"grants-management-api/models"

	"gorm.io/gorm"
)

var (
	ErrGrantNotFound        = errors.New("grant not found")
	ErrComplianceNotFound   = errors.New("compliance requirement not found")
	ErrDisbursementNotFound = errors.New("disbursement not found")
	ErrReportNotFound       = errors.New("report not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrInvalidRecord        = errors.New("invalid record")
)

// GrantRepository is the remote store behind the grants pipeline. Child
// fetches take the ids of the grants whose rows are wanted.
type GrantRepository interface {
	FetchGrants(ctx context.Context, q GrantQuery) ([]models.Grant, error)
	FetchGrant(ctx context.Context, id uint) (*models.Grant, error)
	FetchCompliance(ctx context.Context, grantIDs []uint) ([]models.GrantComplianceRequirement, error)
	FetchDisbursements(ctx context.Context, grantIDs []uint) ([]models.GrantDisbursement, error)
	FetchReports(ctx context.Context, grantIDs []uint) ([]models.GrantReport, error)

	CreateGrant(ctx context.Context, g *models.Grant) error
	UpdateGrant(ctx context.Context, g *models.Grant) error
	DeleteGrant(ctx context.Context, id uint) error

	FetchComplianceByID(ctx context.Context, id uint) (*models.GrantComplianceRequirement, error)
	CreateCompliance(ctx context.Context, c *models.GrantComplianceRequirement) error
	UpdateCompliance(ctx context.Context, c *models.GrantComplianceRequirement) error

	FetchDisbursementByID(ctx context.Context, id uint) (*models.GrantDisbursement, error)
	CreateDisbursement(ctx context.Context, d *models.GrantDisbursement) error
	UpdateDisbursement(ctx context.Context, d *models.GrantDisbursement) error

	FetchReportByID(ctx context.Context, id uint) (*models.GrantReport, error)
	CreateReport(ctx context.Context, r *models.GrantReport) error
	UpdateReport(ctx context.Context, r *models.GrantReport) error

	CreateFileUpload(ctx context.Context, f *models.FileUpload) error
	FetchFileUploadByPath(ctx context.Context, storedPath string) (*models.FileUpload, error)
}

// Record shape checks run on everything read from the store.

func checkGrant(g models.Grant) error {
	if !g.Status.Valid() {
		return fmt.Errorf("%w: grant %d has status %q", ErrInvalidRecord, g.GrantID, g.Status)
	}
	if g.Amount.IsNegative() {
		return fmt.Errorf("%w: grant %d has negative amount", ErrInvalidRecord, g.GrantID)
	}
	return nil
}

func checkCompliance(c models.GrantComplianceRequirement) error {
	if !c.Status.Valid() {
		return fmt.Errorf("%w: compliance %d has status %q", ErrInvalidRecord, c.ComplianceID, c.Status)
	}
	return nil
}

func checkDisbursement(d models.GrantDisbursement) error {
	if !d.Status.Valid() {
		return fmt.Errorf("%w: disbursement %d has status %q", ErrInvalidRecord, d.DisbursementID, d.Status)
	}
	if d.Amount.IsNegative() {
		return fmt.Errorf("%w: disbursement %d has negative amount", ErrInvalidRecord, d.DisbursementID)
	}
	return nil
}

func checkReport(r models.GrantReport) error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: report %d has status %q", ErrInvalidRecord, r.ReportID, r.Status)
	}
	return nil
}

func checkAll[T any](rows []T, check func(T) error) error {
	for _, row := range rows {
		if err := check(row); err != nil {
			return err
		}
	}
	return nil
}

// GormGrantRepository reads and writes grants through gorm.
type GormGrantRepository struct {
	db *gorm.DB
}

func NewGormGrantRepository(db *gorm.DB) *GormGrantRepository {
	if db == nil {
		db = config.DB
	}
	return &GormGrantRepository{db: db}
}

func (r *GormGrantRepository) FetchGrants(ctx context.Context, q GrantQuery) ([]models.Grant, error) {
	query := r.db.WithContext(ctx).Model(&models.Grant{})

	if q.Status != "" {
		query = query.Where("status = ?", string(q.Status))
	}
	if q.Donor != "" {
		query = query.Where("donor_name = ?", q.Donor)
	}
	if q.Region != "" {
		query = query.Where("region = ?", q.Region)
	}
	if q.ProgramArea != "" {
		query = query.Where("program_area = ?", q.ProgramArea)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(q.Search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(donor_name) LIKE ?)", pattern, pattern)
	}

	var grants []models.Grant
	if err := query.Order(q.Sort.OrderClause()).Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("fetch grants: %w", err)
	}
	if err := checkAll(grants, checkGrant); err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *GormGrantRepository) FetchGrant(ctx context.Context, id uint) (*models.Grant, error) {
	var grant models.Grant
	if err := r.db.WithContext(ctx).Where("grant_id = ?", id).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGrantNotFound
		}
		return nil, fmt.Errorf("fetch grant %d: %w", id, err)
	}
	if err := checkGrant(grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *GormGrantRepository) FetchCompliance(ctx context.Context, grantIDs []uint) ([]models.GrantComplianceRequirement, error) {
	if len(grantIDs) == 0 {
		return nil, nil
	}
	var rows []models.GrantComplianceRequirement
	if err := r.db.WithContext(ctx).
		Where("grant_id IN ?", grantIDs).
		Order("due_date ASC, compliance_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch compliance requirements: %w", err)
	}
	if err := checkAll(rows, checkCompliance); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormGrantRepository) FetchDisbursements(ctx context.Context, grantIDs []uint) ([]models.GrantDisbursement, error) {
	if len(grantIDs) == 0 {
		return nil, nil
	}
	var rows []models.GrantDisbursement
	if err := r.db.WithContext(ctx).
		Where("grant_id IN ?", grantIDs).
		Order("due_date ASC, disbursement_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch disbursements: %w", err)
	}
	if err := checkAll(rows, checkDisbursement); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormGrantRepository) FetchReports(ctx context.Context, grantIDs []uint) ([]models.GrantReport, error) {
	if len(grantIDs) == 0 {
		return nil, nil
	}
	var rows []models.GrantReport
	if err := r.db.WithContext(ctx).
		Where("grant_id IN ?", grantIDs).
		Order("due_date ASC, report_id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch reports: %w", err)
	}
	if err := checkAll(rows, checkReport); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormGrantRepository) CreateGrant(ctx context.Context, g *models.Grant) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GormGrantRepository) UpdateGrant(ctx context.Context, g *models.Grant) error {
	res := r.db.WithContext(ctx).Model(g).Select("*").Omit("grant_id", "created_at").Updates(g)
	if res.Error != nil {
		return fmt.Errorf("update grant %d: %w", g.GrantID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// DeleteGrant removes the grant; its child rows go with it through the
// ON DELETE CASCADE foreign keys.
func (r *GormGrantRepository) DeleteGrant(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("grant_id = ?", id).Delete(&models.Grant{})
	if res.Error != nil {
		return fmt.Errorf("delete grant %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrGrantNotFound
	}
	return nil
}

func (r *GormGrantRepository) FetchComplianceByID(ctx context.Context, id uint) (*models.GrantComplianceRequirement, error) {
	var row models.GrantComplianceRequirement
	if err := r.db.WithContext(ctx).Where("compliance_id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrComplianceNotFound
		}
		return nil, fmt.Errorf("fetch compliance %d: %w", id, err)
	}
	if err := checkCompliance(row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GormGrantRepository) CreateCompliance(ctx context.Context, c *models.GrantComplianceRequirement) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GormGrantRepository) UpdateCompliance(ctx context.Context, c *models.GrantComplianceRequirement) error {
	res := r.db.WithContext(ctx).Model(c).Select("*").Omit("compliance_id", "grant_id", "created_at").Updates(c)
	if res.Error != nil {
		return fmt.Errorf("update compliance %d: %w", c.ComplianceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrComplianceNotFound
	}
	return nil
}

func (r *GormGrantRepository) FetchDisbursementByID(ctx context.Context, id uint) (*models.GrantDisbursement, error) {
	var row models.GrantDisbursement
	if err := r.db.WithContext(ctx).Where("disbursement_id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDisbursementNotFound
		}
		return nil, fmt.Errorf("fetch disbursement %d: %w", id, err)
	}
	if err := checkDisbursement(row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GormGrantRepository) CreateDisbursement(ctx context.Context, d *models.GrantDisbursement) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *GormGrantRepository) UpdateDisbursement(ctx context.Context, d *models.GrantDisbursement) error {
	res := r.db.WithContext(ctx).Model(d).Select("*").Omit("disbursement_id", "grant_id", "created_at").Updates(d)
	if res.Error != nil {
		return fmt.Errorf("update disbursement %d: %w", d.DisbursementID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDisbursementNotFound
	}
	return nil
}

func (r *GormGrantRepository) FetchReportByID(ctx context.Context, id uint) (*models.GrantReport, error) {
	var row models.GrantReport
	if err := r.db.WithContext(ctx).Where("report_id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("fetch report %d: %w", id, err)
	}
	if err := checkReport(row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *GormGrantRepository) CreateReport(ctx context.Context, rep *models.GrantReport) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *GormGrantRepository) UpdateReport(ctx context.Context, rep *models.GrantReport) error {
	res := r.db.WithContext(ctx).Model(rep).Select("*").Omit("report_id", "grant_id", "created_at").Updates(rep)
	if res.Error != nil {
		return fmt.Errorf("update report %d: %w", rep.ReportID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *GormGrantRepository) CreateFileUpload(ctx context.Context, f *models.FileUpload) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *GormGrantRepository) FetchFileUploadByPath(ctx context.Context, storedPath string) (*models.FileUpload, error) {
	var f models.FileUpload
	err := r.db.WithContext(ctx).Where("stored_path = ? AND delete_at IS NULL", storedPath).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch file %s: %w", storedPath, err)
	}
	return &f, nil
}
