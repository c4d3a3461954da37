package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-allocation-api/internal/middleware"
	"github.com/noah-isme/course-allocation-api/internal/models"
)

func currentUserID(c *gin.Context) string {
	if value, ok := c.Get(middleware.ContextUserID); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

func currentStudentID(c *gin.Context) string {
	if value, ok := c.Get(middleware.ContextStudentID); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}

func currentRole(c *gin.Context) models.UserRole {
	if value, ok := c.Get(middleware.ContextRole); ok {
		if role, ok := value.(models.UserRole); ok {
			return role
		}
	}
	return ""
}

func isStaff(c *gin.Context) bool {
	switch currentRole(c) {
	case models.RoleAdmin, models.RoleHOD, models.RoleLecturer:
		return true
	}
	return false
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func paginationQuery(c *gin.Context) (page, pageSize int) {
	return queryInt(c, "page", 1), queryInt(c, "page_size", 20)
}

func newPagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
