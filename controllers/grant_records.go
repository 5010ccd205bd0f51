package controllers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"grants-management-api/services"

	"github.com/gin-gonic/gin"
)

// AddCompliance POST /grants/:id/compliance
func (gc *GrantController) AddCompliance(c *gin.Context) {
	grantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.ComplianceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	req, err := gc.svc.AddCompliance(c.Request.Context(), grantID, in)
	if err != nil {
		respondError(c, "AddCompliance", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": req})
}

// SetComplianceStatus PUT /compliance/:id/status
func (gc *GrantController) SetComplianceStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	req, err := gc.svc.SetComplianceStatus(c.Request.Context(), id, body.Status)
	if err != nil {
		respondError(c, "SetComplianceStatus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": req})
}

// formUpload turns the multipart "file" field into a service upload. The
// returned file must be closed by the caller.
func formUpload(c *gin.Context) (*services.Upload, multipart.File, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	contentType := header.Header.Get("Content-Type")
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return &services.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Reader:      file,
		UploadedBy:  c.GetInt("userID"),
	}, file, nil
}

// AttachComplianceEvidence POST /compliance/:id/evidence (multipart "file")
func (gc *GrantController) AttachComplianceEvidence(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	upload, file, err := formUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file uploaded"})
		return
	}
	defer file.Close()

	req, err := gc.svc.AttachComplianceEvidence(c.Request.Context(), id, *upload)
	if err != nil {
		respondError(c, "AttachComplianceEvidence", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": req})
}

// AddDisbursement POST /grants/:id/disbursements
func (gc *GrantController) AddDisbursement(c *gin.Context) {
	grantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.DisbursementInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	d, err := gc.svc.AddDisbursement(c.Request.Context(), grantID, in)
	if err != nil {
		respondError(c, "AddDisbursement", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": d})
}

// ReleaseDisbursement POST /disbursements/:id/release
func (gc *GrantController) ReleaseDisbursement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := gc.svc.ReleaseDisbursement(c.Request.Context(), id)
	if err != nil {
		respondError(c, "ReleaseDisbursement", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": d})
}

// CancelDisbursement POST /disbursements/:id/cancel
func (gc *GrantController) CancelDisbursement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := gc.svc.CancelDisbursement(c.Request.Context(), id)
	if err != nil {
		respondError(c, "CancelDisbursement", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": d})
}

// AddReport POST /grants/:id/reports
func (gc *GrantController) AddReport(c *gin.Context) {
	grantID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.ReportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	r, err := gc.svc.AddReport(c.Request.Context(), grantID, in)
	if err != nil {
		respondError(c, "AddReport", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": r})
}

// SubmitReport POST /reports/:id/submit, optionally with a multipart "file".
func (gc *GrantController) SubmitReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var upload *services.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		u, file, err := formUpload(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file uploaded"})
			return
		}
		defer file.Close()
		upload = u
	}

	r, err := gc.svc.SubmitReport(c.Request.Context(), id, upload)
	if err != nil {
		respondError(c, "SubmitReport", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r})
}

func sendAttachment(c *gin.Context, att *services.Attachment) {
	defer att.Body.Close()

	size := att.Size
	if size <= 0 {
		size = -1
	}
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, size, contentType, att.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", att.Filename),
	})
}

// DownloadComplianceEvidence GET /compliance/:id/evidence
func (gc *GrantController) DownloadComplianceEvidence(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	att, err := gc.svc.OpenComplianceEvidence(c.Request.Context(), id)
	if err != nil {
		respondError(c, "DownloadComplianceEvidence", err)
		return
	}
	sendAttachment(c, att)
}

// DownloadReportFile GET /reports/:id/file
func (gc *GrantController) DownloadReportFile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	att, err := gc.svc.OpenReportFile(c.Request.Context(), id)
	if err != nil {
		respondError(c, "DownloadReportFile", err)
		return
	}
	sendAttachment(c, att)
}
