package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"grants-management-api/models"
)

// MemoryGrantRepository keeps grants and their child rows in process. It
// mirrors the gorm store closely enough to drive the pipeline without a
// database.
type MemoryGrantRepository struct {
	mu            sync.RWMutex
	now           func() time.Time
	grants        map[uint]models.Grant
	compliance    map[uint]models.GrantComplianceRequirement
	disbursements map[uint]models.GrantDisbursement
	reports       map[uint]models.GrantReport
	files         map[uint]models.FileUpload
	lastID        uint
}

var _ GrantRepository = (*MemoryGrantRepository)(nil)

func NewMemoryGrantRepository() *MemoryGrantRepository {
	return &MemoryGrantRepository{
		now:           time.Now,
		grants:        make(map[uint]models.Grant),
		compliance:    make(map[uint]models.GrantComplianceRequirement),
		disbursements: make(map[uint]models.GrantDisbursement),
		reports:       make(map[uint]models.GrantReport),
		files:         make(map[uint]models.FileUpload),
	}
}

func (r *MemoryGrantRepository) nextID() uint {
	r.lastID++
	return r.lastID
}

func (r *MemoryGrantRepository) stamp(created, updated *time.Time) {
	now := r.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func idSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (r *MemoryGrantRepository) FetchGrants(ctx context.Context, q GrantQuery) ([]models.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Grant, 0, len(r.grants))
	for _, g := range r.grants {
		if q.Matches(g) {
			out = append(out, g)
		}
	}
	SortGrants(out, q.Sort)
	if err := checkAll(out, checkGrant); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MemoryGrantRepository) FetchGrant(ctx context.Context, id uint) (*models.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.grants[id]
	if !ok {
		return nil, ErrGrantNotFound
	}
	if err := checkGrant(g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *MemoryGrantRepository) FetchCompliance(ctx context.Context, grantIDs []uint) ([]models.GrantComplianceRequirement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := idSet(grantIDs)
	var out []models.GrantComplianceRequirement
	for _, c := range r.compliance {
		if _, ok := want[c.GrantID]; ok {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ComplianceID < out[j].ComplianceID
	})
	if err := checkAll(out, checkCompliance); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MemoryGrantRepository) FetchDisbursements(ctx context.Context, grantIDs []uint) ([]models.GrantDisbursement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := idSet(grantIDs)
	var out []models.GrantDisbursement
	for _, d := range r.disbursements {
		if _, ok := want[d.GrantID]; ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].DisbursementID < out[j].DisbursementID
	})
	if err := checkAll(out, checkDisbursement); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MemoryGrantRepository) FetchReports(ctx context.Context, grantIDs []uint) ([]models.GrantReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := idSet(grantIDs)
	var out []models.GrantReport
	for _, rep := range r.reports {
		if _, ok := want[rep.GrantID]; ok {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].ReportID < out[j].ReportID
	})
	if err := checkAll(out, checkReport); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MemoryGrantRepository) CreateGrant(ctx context.Context, g *models.Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	g.GrantID = r.nextID()
	r.stamp(&g.CreatedAt, &g.UpdatedAt)
	r.grants[g.GrantID] = *g
	return nil
}

func (r *MemoryGrantRepository) UpdateGrant(ctx context.Context, g *models.Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.grants[g.GrantID]
	if !ok {
		return ErrGrantNotFound
	}
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = r.now()
	r.grants[g.GrantID] = *g
	return nil
}

// DeleteGrant cascades to the grant's child rows the way the database
// foreign keys do.
func (r *MemoryGrantRepository) DeleteGrant(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grants[id]; !ok {
		return ErrGrantNotFound
	}
	delete(r.grants, id)
	for cid, c := range r.compliance {
		if c.GrantID == id {
			delete(r.compliance, cid)
		}
	}
	for did, d := range r.disbursements {
		if d.GrantID == id {
			delete(r.disbursements, did)
		}
	}
	for rid, rep := range r.reports {
		if rep.GrantID == id {
			delete(r.reports, rid)
		}
	}
	return nil
}

func (r *MemoryGrantRepository) FetchComplianceByID(ctx context.Context, id uint) (*models.GrantComplianceRequirement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.compliance[id]
	if !ok {
		return nil, ErrComplianceNotFound
	}
	return &c, checkCompliance(c)
}

func (r *MemoryGrantRepository) CreateCompliance(ctx context.Context, c *models.GrantComplianceRequirement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grants[c.GrantID]; !ok {
		return ErrGrantNotFound
	}
	c.ComplianceID = r.nextID()
	r.stamp(&c.CreatedAt, &c.UpdatedAt)
	r.compliance[c.ComplianceID] = *c
	return nil
}

func (r *MemoryGrantRepository) UpdateCompliance(ctx context.Context, c *models.GrantComplianceRequirement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.compliance[c.ComplianceID]
	if !ok {
		return ErrComplianceNotFound
	}
	c.GrantID = existing.GrantID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.now()
	r.compliance[c.ComplianceID] = *c
	return nil
}

func (r *MemoryGrantRepository) FetchDisbursementByID(ctx context.Context, id uint) (*models.GrantDisbursement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.disbursements[id]
	if !ok {
		return nil, ErrDisbursementNotFound
	}
	return &d, checkDisbursement(d)
}

func (r *MemoryGrantRepository) CreateDisbursement(ctx context.Context, d *models.GrantDisbursement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grants[d.GrantID]; !ok {
		return ErrGrantNotFound
	}
	d.DisbursementID = r.nextID()
	r.stamp(&d.CreatedAt, &d.UpdatedAt)
	r.disbursements[d.DisbursementID] = *d
	return nil
}

func (r *MemoryGrantRepository) UpdateDisbursement(ctx context.Context, d *models.GrantDisbursement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.disbursements[d.DisbursementID]
	if !ok {
		return ErrDisbursementNotFound
	}
	d.GrantID = existing.GrantID
	d.CreatedAt = existing.CreatedAt
	d.UpdatedAt = r.now()
	r.disbursements[d.DisbursementID] = *d
	return nil
}

func (r *MemoryGrantRepository) FetchReportByID(ctx context.Context, id uint) (*models.GrantReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &rep, checkReport(rep)
}

func (r *MemoryGrantRepository) CreateReport(ctx context.Context, rep *models.GrantReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.grants[rep.GrantID]; !ok {
		return ErrGrantNotFound
	}
	rep.ReportID = r.nextID()
	r.stamp(&rep.CreatedAt, &rep.UpdatedAt)
	r.reports[rep.ReportID] = *rep
	return nil
}

func (r *MemoryGrantRepository) UpdateReport(ctx context.Context, rep *models.GrantReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.reports[rep.ReportID]
	if !ok {
		return ErrReportNotFound
	}
	rep.GrantID = existing.GrantID
	rep.CreatedAt = existing.CreatedAt
	rep.UpdatedAt = r.now()
	r.reports[rep.ReportID] = *rep
	return nil
}

func (r *MemoryGrantRepository) CreateFileUpload(ctx context.Context, f *models.FileUpload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	f.FileID = r.nextID()
	r.files[f.FileID] = *f
	return nil
}

func (r *MemoryGrantRepository) FetchFileUploadByPath(ctx context.Context, storedPath string) (*models.FileUpload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.files {
		if f.StoredPath == storedPath && f.DeleteAt == nil {
			return &f, nil
		}
	}
	return nil, ErrFileNotFound
}

// FileUploads returns every recorded upload, oldest first.
func (r *MemoryGrantRepository) FileUploads() []models.FileUpload {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.FileUpload, 0, len(r.files))
	for _, f := range r.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out
}
