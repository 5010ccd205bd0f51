package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"grants-management-api/config"
	"grants-management-api/controllers"
	"grants-management-api/middleware"
	"grants-management-api/models"
	"grants-management-api/routes"
	"grants-management-api/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

type bufferStore struct {
	saved map[string][]byte
}

func (b *bufferStore) Save(_ context.Context, folder, filename string, r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	key := folder + "/" + filename
	b.saved[key] = data
	return key, nil
}

func (b *bufferStore) Open(_ context.Context, storedPath string) (io.ReadCloser, error) {
	data, ok := b.saved[storedPath]
	if !ok {
		return nil, config.ErrStoredFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *bufferStore) Delete(_ context.Context, storedPath string) error {
	delete(b.saved, storedPath)
	return nil
}

type apiFixture struct {
	router *gin.Engine
	svc    *services.GrantService
	store  *bufferStore
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", testSecret)

	prev := middleware.UserExists
	middleware.UserExists = func(int) bool { return true }
	t.Cleanup(func() { middleware.UserExists = prev })

	store := &bufferStore{saved: map[string][]byte{}}
	svc := services.NewGrantService(services.NewMemoryGrantRepository(), store).WithClock(func() time.Time { return fixedNow })

	router := gin.New()
	routes.SetupRoutes(router, controllers.NewGrantController(svc, 5))
	return &apiFixture{router: router, svc: svc, store: store}
}

func bearer(t *testing.T, roleID int) string {
	t.Helper()
	claims := middleware.Claims{
		UserID: 11,
		Email:  "user@example.org",
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func (f *apiFixture) do(t *testing.T, method, path string, roleID int, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if roleID > 0 {
		req.Header.Set("Authorization", bearer(t, roleID))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) seed(t *testing.T, n int) []*models.Grant {
	t.Helper()
	var out []*models.Grant
	for i := 0; i < n; i++ {
		g, err := f.svc.CreateGrant(context.Background(), services.GrantInput{
			Name:      fmt.Sprintf("Grant %02d", i),
			DonorName: "Aqua Fund",
			Status:    "active",
			Amount:    decimal.NewFromInt(1000),
			Currency:  "USD",
		})
		require.NoError(t, err)
		out = append(out, g)
	}
	return out
}

type listResponse struct {
	Success    bool                     `json:"success"`
	Data       []map[string]interface{} `json:"data"`
	Pagination struct {
		CurrentPage int  `json:"current_page"`
		PerPage     int  `json:"per_page"`
		TotalCount  int  `json:"total_count"`
		TotalPages  int  `json:"total_pages"`
		HasNext     bool `json:"has_next"`
		HasPrev     bool `json:"has_prev"`
	} `json:"pagination"`
}

func TestListGrantsPaginates(t *testing.T) {
	api := newAPI(t)
	api.seed(t, 12)

	rec := api.do(t, http.MethodGet, "/api/v1/grants?page=2", models.RoleViewer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, 2, resp.Pagination.CurrentPage)
	assert.Equal(t, 12, resp.Pagination.TotalCount)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasNext)
	assert.True(t, resp.Pagination.HasPrev)
	assert.Contains(t, resp.Data[0], "compliance_rate")
	assert.Contains(t, resp.Data[0], "reporting_status")

	rec = api.do(t, http.MethodGet, "/api/v1/grants?page=9&limit=10", models.RoleViewer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Pagination.CurrentPage)
	assert.Len(t, resp.Data, 2)
	assert.False(t, resp.Pagination.HasNext)
}

func TestListGrantsFilters(t *testing.T) {
	api := newAPI(t)
	api.seed(t, 3)

	rec := api.do(t, http.MethodGet, "/api/v1/grants?search=grant%2001&status=all", models.RoleViewer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Grant 01", resp.Data[0]["name"])

	rec = api.do(t, http.MethodGet, "/api/v1/grants?status=closed", models.RoleViewer, nil, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
	assert.Equal(t, 1, resp.Pagination.CurrentPage)
}

func TestAuthAndRoles(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/grants", 0, nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body := `{"name":"Wells","donor_name":"Aqua","status":"active","amount":"2500.00","currency":"USD","start_date":"2024-01-01"}`
	rec = api.do(t, http.MethodPost, "/api/v1/grants", models.RoleViewer, strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/grants", models.RoleManager, strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodDelete, "/api/v1/grants/1", models.RoleManager, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/grants/1", models.RoleAdmin, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateGrantRejectsInvalidInput(t *testing.T) {
	api := newAPI(t)
	body := `{"name":"Wells","donor_name":"Aqua","status":"frozen","amount":"1","currency":"USD"}`
	rec := api.do(t, http.MethodPost, "/api/v1/grants", models.RoleAdmin, strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")
}

func TestGetGrantErrors(t *testing.T) {
	api := newAPI(t)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/grants/77", models.RoleViewer, nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/v1/grants/abc", models.RoleViewer, nil, "").Code)
}

func TestExportEndpoints(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/grants/export?format=csv", models.RoleViewer, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	grants := api.seed(t, 2)

	rec = api.do(t, http.MethodGet, "/api/v1/grants/export?format=csv", models.RoleViewer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ContentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "grants-20240610.csv")
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))

	rec = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/grants/%d/export?format=xlsx", grants[0].GrantID), models.RoleViewer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.ContentTypeExcel, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	rec = api.do(t, http.MethodGet, "/api/v1/grants/export?format=docx", models.RoleViewer, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisbursementReleaseConflict(t *testing.T) {
	api := newAPI(t)
	g := api.seed(t, 1)[0]

	body := `{"milestone":"Tranche 1","amount":"500","currency":"USD","due_date":"2024-07-01"}`
	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/grants/%d/disbursements", g.GrantID), models.RoleManager, strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data models.GrantDisbursement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/disbursements/%d/release", created.Data.DisbursementID)
	assert.Equal(t, http.StatusOK, api.do(t, http.MethodPost, path, models.RoleManager, nil, "").Code)
	assert.Equal(t, http.StatusConflict, api.do(t, http.MethodPost, path, models.RoleManager, nil, "").Code)
}

func multipartFile(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestComplianceEvidenceUpload(t *testing.T) {
	api := newAPI(t)
	g := api.seed(t, 1)[0]
	req, err := api.svc.AddCompliance(context.Background(), g.GrantID, services.ComplianceInput{Requirement: "Audit", DueDate: "2024-07-01"})
	require.NoError(t, err)

	body, ct := multipartFile(t, "audit.pdf", "application/pdf", []byte("%PDF-1.4 audit"))
	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/compliance/%d/evidence", req.ComplianceID), models.RoleManager, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []byte("%PDF-1.4 audit"), api.store.saved["compliance/audit.pdf"])

	body, ct = multipartFile(t, "run.sh", "application/x-sh", []byte("#!/bin/sh"))
	rec = api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/compliance/%d/evidence", req.ComplianceID), models.RoleManager, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReportWithoutFile(t *testing.T) {
	api := newAPI(t)
	g := api.seed(t, 1)[0]
	r, err := api.svc.AddReport(context.Background(), g.GrantID, services.ReportInput{ReportType: "Annual", DueDate: "2024-12-31"})
	require.NoError(t, err)

	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reports/%d/submit", r.ReportID), models.RoleManager, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"submitted"`)
}

func TestDownloadComplianceEvidence(t *testing.T) {
	api := newAPI(t)
	g := api.seed(t, 1)[0]
	req, err := api.svc.AddCompliance(context.Background(), g.GrantID, services.ComplianceInput{Requirement: "Audit", DueDate: "2024-07-01"})
	require.NoError(t, err)
	path := fmt.Sprintf("/api/v1/compliance/%d/evidence", req.ComplianceID)

	rec := api.do(t, http.MethodGet, path, models.RoleViewer, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/compliance/999/evidence", models.RoleViewer, nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodGet, path, 0, nil, "").Code)

	body, ct := multipartFile(t, "audit.pdf", "application/pdf", []byte("%PDF-1.4 audit"))
	rec = api.do(t, http.MethodPost, path, models.RoleManager, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, path, models.RoleViewer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "%PDF-1.4 audit", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="audit.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestDownloadReportFile(t *testing.T) {
	api := newAPI(t)
	g := api.seed(t, 1)[0]
	r, err := api.svc.AddReport(context.Background(), g.GrantID, services.ReportInput{ReportType: "Annual", DueDate: "2024-12-31"})
	require.NoError(t, err)
	path := fmt.Sprintf("/api/v1/reports/%d/file", r.ReportID)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, path, models.RoleViewer, nil, "").Code)

	body, ct := multipartFile(t, "annual.pdf", "application/pdf", []byte("%PDF annual"))
	rec := api.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reports/%d/submit", r.ReportID), models.RoleManager, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, path, models.RoleViewer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "%PDF annual", rec.Body.String())
	assert.Equal(t, `attachment; filename="annual.pdf"`, rec.Header().Get("Content-Disposition"))

	// Stored bytes gone while the row remains.
	delete(api.store.saved, "reports/annual.pdf")
	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, path, models.RoleViewer, nil, "").Code)
}
