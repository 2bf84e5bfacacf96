package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/workstead/workstead/pkg/errors"
)

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta describes pagination and cache provenance metadata.
type Meta struct {
	Page       int  `json:"page,omitempty"`
	PerPage    int  `json:"per_page,omitempty"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages,omitempty"`
	HasMore    bool `json:"has_more"`
	FromCache  bool `json:"from_cache,omitempty"`
	Stale      bool `json:"stale,omitempty"`
}

// NewListMeta derives pagination metadata from page, page size and total count.
// HasMore fails closed: it is false as soon as page*perPage covers the total.
func NewListMeta(page, perPage int, total int64) *Meta {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 1
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int(total),
		TotalPages: totalPages,
		HasMore:    int64(page)*int64(perPage) < total,
	}
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta writes a JSON success response including metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		},
	})
}
