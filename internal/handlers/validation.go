package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/internal/listing"
	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/internal/services"
	appErrors "github.com/workstead/workstead/pkg/errors"
	"github.com/workstead/workstead/pkg/response"
	appValidator "github.com/workstead/workstead/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, failure.Param))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
			case "uuid4":
				messages = append(messages, fmt.Sprintf("%s must be a valid UUID", field))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseListingParams reads the shared list query parameters and normalises
// them, so the cache key and the query see identical values.
func parseListingParams(c *gin.Context) listing.Params {
	params := listing.Params{
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		SortBy:   c.Query("sort_by"),
		Sort:     c.Query("sort"),
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", listing.DefaultPageSize),
	}
	return params.Normalize()
}

// forceRefresh reports whether the caller asked to bypass the query cache.
func forceRefresh(c *gin.Context) bool {
	return strings.EqualFold(strings.TrimSpace(c.Query("refresh")), "true")
}

// listCacheKey qualifies the entity prefix with the caller's visibility scope
// before appending the listing parameters. Tenants never share cache entries,
// while invalidation by entity prefix still sweeps every scope at once.
func listCacheKey(prefix string, scope services.Scope, params listing.Params) string {
	qualifier := "all"
	switch scope.Role {
	case models.RoleCompanyAdmin:
		qualifier = "c" + scope.CompanyID
	case models.RoleEmployee:
		qualifier = "u" + scope.UserID
	}
	return params.CacheKey(prefix + "_" + qualifier)
}
