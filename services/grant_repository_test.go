package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"grants-management-api/models"
)

var grantColumns = []string{"grant_id", "name", "donor_name", "status", "region", "program_area", "amount", "currency", "created_at", "updated_at"}

func grantRow(id int64, name, donor, status string, amount string) []driver.Value {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []driver.Value{id, name, donor, status, "North", "Health", []byte(amount), "USD", ts, ts}
}

func TestGormFetchGrantsAppliesFiltersSearchAndSort(t *testing.T) {
	steps := []*queryStep{
		expectQuery(
			`SELECT \* FROM .grants. WHERE status = \? AND region = \? AND \(+LOWER\(name\) LIKE \? OR LOWER\(donor_name\) LIKE \?\)+ ORDER BY name ASC, grant_id ASC`,
			[]driver.Value{"active", "North", "%water\\_aid%", "%water\\_aid%"},
			grantColumns,
			grantRow(2, "Water_Aid Wells", "Aqua Fund", "active", "1500.50"),
		),
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	repo := NewGormGrantRepository(db)
	q := GrantFilter{Search: " Water_Aid ", Donor: "all", Status: "Open", Region: "North", ProgramArea: "ALL", Sort: "name_asc"}.Normalize()

	grants, err := repo.FetchGrants(context.Background(), q)
	if err != nil {
		t.Fatalf("FetchGrants returned error: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(grants))
	}
	if grants[0].GrantID != 2 || grants[0].Status != models.GrantStatusActive {
		t.Fatalf("unexpected grant: %+v", grants[0])
	}
	if got := grants[0].Amount.StringFixed(2); got != "1500.50" {
		t.Fatalf("expected amount 1500.50, got %s", got)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormFetchGrantsUnfilteredIssuesNoWhere(t *testing.T) {
	steps := []*queryStep{
		expectQuery(
			`SELECT \* FROM .grants. ORDER BY created_at DESC, grant_id DESC`,
			nil,
			grantColumns,
			grantRow(1, "A", "Donor A", "pending", "10"),
			grantRow(2, "B", "Donor B", "closed", "20"),
		),
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	grants, err := NewGormGrantRepository(db).FetchGrants(context.Background(), DefaultGrantFilter().Normalize())
	if err != nil {
		t.Fatalf("FetchGrants returned error: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormFetchGrantsRejectsUnknownStatus(t *testing.T) {
	steps := []*queryStep{
		expectQuery(`SELECT \* FROM .grants.`, nil, grantColumns, grantRow(9, "Odd", "Donor", "archived", "1")),
	}

	db, _, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	_, err := NewGormGrantRepository(db).FetchGrants(context.Background(), DefaultGrantFilter().Normalize())
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestGormFetchGrantNotFound(t *testing.T) {
	steps := []*queryStep{
		expectQuery(`SELECT \* FROM .grants. WHERE grant_id = \?`, []driver.Value{int64(42)}, grantColumns),
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	_, err := NewGormGrantRepository(db).FetchGrant(context.Background(), 42)
	if !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormFetchComplianceBatchesGrantIDs(t *testing.T) {
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	steps := []*queryStep{
		expectQuery(
			`SELECT \* FROM .grant_compliance_requirements. WHERE grant_id IN \(\?,\?\) ORDER BY due_date ASC, compliance_id ASC`,
			[]driver.Value{int64(1), int64(2)},
			[]string{"compliance_id", "grant_id", "requirement", "due_date", "status"},
			[]driver.Value{int64(10), int64(1), "Audit", due, "completed"},
			[]driver.Value{int64(11), int64(2), "Site visit", due, "in_progress"},
		),
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	reqs, err := NewGormGrantRepository(db).FetchCompliance(context.Background(), []uint{1, 2})
	if err != nil {
		t.Fatalf("FetchCompliance returned error: %v", err)
	}
	if len(reqs) != 2 || reqs[1].Status != models.ComplianceStatusInProgress {
		t.Fatalf("unexpected rows: %+v", reqs)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormChildFetchWithNoGrantsSkipsQuery(t *testing.T) {
	db, state, cleanup := newScriptedGormDB(t, nil)
	defer cleanup()

	repo := NewGormGrantRepository(db)
	if rows, err := repo.FetchDisbursements(context.Background(), nil); err != nil || rows != nil {
		t.Fatalf("expected no rows and no error, got %v, %v", rows, err)
	}
	if rows, err := repo.FetchReports(context.Background(), []uint{}); err != nil || rows != nil {
		t.Fatalf("expected no rows and no error, got %v, %v", rows, err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormDeleteGrant(t *testing.T) {
	steps := []*queryStep{
		expectExec(`DELETE FROM .grants. WHERE grant_id = \?`, []driver.Value{int64(3)}, 1),
		expectExec(`DELETE FROM .grants. WHERE grant_id = \?`, []driver.Value{int64(4)}, 0),
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	repo := NewGormGrantRepository(db)
	if err := repo.DeleteGrant(context.Background(), 3); err != nil {
		t.Fatalf("DeleteGrant returned error: %v", err)
	}
	if err := repo.DeleteGrant(context.Background(), 4); !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestGormFetchFileUploadByPath(t *testing.T) {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"file_id", "original_name", "stored_path", "folder_type", "file_size", "mime_type", "uploaded_by", "uploaded_at", "create_at", "update_at"}
	steps := []*queryStep{
		expectQuery(
			`SELECT \* FROM .file_uploads. WHERE stored_path = \? AND delete_at IS NULL`,
			[]driver.Value{"reports/abc_annual.pdf"},
			cols,
			[]driver.Value{int64(8), "annual.pdf", "reports/abc_annual.pdf", "reports", int64(4), "application/pdf", int64(7), ts, ts, ts},
		),
		expectQuery(
			`SELECT \* FROM .file_uploads. WHERE stored_path = \? AND delete_at IS NULL`,
			[]driver.Value{"reports/gone.pdf"},
			cols,
		),
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	repo := NewGormGrantRepository(db)
	f, err := repo.FetchFileUploadByPath(context.Background(), "reports/abc_annual.pdf")
	if err != nil {
		t.Fatalf("FetchFileUploadByPath returned error: %v", err)
	}
	if f.FileID != 8 || f.OriginalName != "annual.pdf" || f.MimeType != "application/pdf" {
		t.Fatalf("unexpected file: %+v", f)
	}
	if _, err := repo.FetchFileUploadByPath(context.Background(), "reports/gone.pdf"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}
