package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"grants-management-api/config"
	"grants-management-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const maxPageSize = 100

// GrantController serves the grants portfolio endpoints.
type GrantController struct {
	svc      *services.GrantService
	pageSize int
}

func NewGrantController(svc *services.GrantService, pageSize int) *GrantController {
	if pageSize <= 0 {
		pageSize = services.DefaultPageSize
	}
	return &GrantController{svc: svc, pageSize: pageSize}
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, funcName string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrUnknownExportFormat):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrGrantNotFound),
		errors.Is(err, services.ErrComplianceNotFound),
		errors.Is(err, services.ErrDisbursementNotFound),
		errors.Is(err, services.ErrReportNotFound),
		errors.Is(err, services.ErrFileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNoFileStore):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		config.LogError("grants", funcName, logrus.Fields{"path": c.FullPath()}, err)
		c.JSON(status, gin.H{"success": false, "error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func (gc *GrantController) pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(gc.pageSize)))
	if err != nil || limit <= 0 {
		limit = gc.pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// ListGrants GET /grants
func (gc *GrantController) ListGrants(c *gin.Context) {
	var filter services.GrantFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	grants, err := gc.svc.ListGrants(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "ListGrants", err)
		return
	}

	page, limit := gc.pageParams(c)
	totalPages := (len(grants) + limit - 1) / limit
	result := services.Paginate(grants, services.ClampPage(page, totalPages), limit)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Items,
		"pagination": gin.H{
			"current_page": result.Page,
			"per_page":     result.PageSize,
			"total_count":  result.TotalItems,
			"total_pages":  result.TotalPages,
			"has_next":     result.Page < result.TotalPages,
			"has_prev":     result.Page > 1,
		},
		"filters": filter.Normalize(),
	})
}

// GetGrant GET /grants/:id
func (gc *GrantController) GetGrant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := gc.svc.GetGrant(c.Request.Context(), id)
	if err != nil {
		respondError(c, "GetGrant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": detail})
}

// CreateGrant POST /grants
func (gc *GrantController) CreateGrant(c *gin.Context) {
	var in services.GrantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	grant, err := gc.svc.CreateGrant(c.Request.Context(), in)
	if err != nil {
		respondError(c, "CreateGrant", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": grant})
}

// UpdateGrant PUT /grants/:id
func (gc *GrantController) UpdateGrant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in services.GrantInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	grant, err := gc.svc.UpdateGrant(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, "UpdateGrant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": grant})
}

// DeleteGrant DELETE /grants/:id
func (gc *GrantController) DeleteGrant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := gc.svc.DeleteGrant(c.Request.Context(), id); err != nil {
		respondError(c, "DeleteGrant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Grant deleted"})
}

func sendPayload(c *gin.Context, payload *services.Payload) {
	if payload == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	c.Data(http.StatusOK, payload.ContentType, payload.Body)
}

// ExportGrants GET /grants/export?format=csv|pdf|excel
func (gc *GrantController) ExportGrants(c *gin.Context) {
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		respondError(c, "ExportGrants", err)
		return
	}
	var filter services.GrantFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	grants, err := gc.svc.ListGrants(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "ExportGrants", err)
		return
	}
	payload, err := services.ExportGrants(format, grants, gc.svc.Now())
	if err != nil {
		respondError(c, "ExportGrants", err)
		return
	}
	sendPayload(c, payload)
}

// ExportGrant GET /grants/:id/export?format=csv|pdf|excel
func (gc *GrantController) ExportGrant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		respondError(c, "ExportGrant", err)
		return
	}

	detail, err := gc.svc.GetGrant(c.Request.Context(), id)
	if err != nil {
		respondError(c, "ExportGrant", err)
		return
	}
	payload, err := services.ExportGrantDetail(format, detail, gc.svc.Now())
	if err != nil {
		respondError(c, "ExportGrant", err)
		return
	}
	sendPayload(c, payload)
}
