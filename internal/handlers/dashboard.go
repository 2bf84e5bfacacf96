package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/workstead/workstead/internal/models"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/internal/services"
	"github.com/workstead/workstead/pkg/response"
)

// DashboardHandler serves the aggregated overview numbers.
type DashboardHandler struct {
	svc   *services.DashboardService
	query *query.Executor
}

// NewDashboardHandler constructs a DashboardHandler instance.
func NewDashboardHandler(svc *services.DashboardService, executor *query.Executor) (*DashboardHandler, error) {
	if svc == nil {
		return nil, errors.New("dashboard handler: service is required")
	}
	if executor == nil {
		return nil, errors.New("dashboard handler: query executor is required")
	}
	return &DashboardHandler{svc: svc, query: executor}, nil
}

// GET /api/dashboard/summary
func (h *DashboardHandler) Summary(c *gin.Context) {
	scope := currentScope(c)
	key := dashboardCacheKey(scope)

	summary, result, err := query.FetchJSON(requestContext(c), h.query, key, query.Options{
		ForceRefresh: forceRefresh(c),
		CriticalData: true,
	}, func(ctx context.Context) (*services.DashboardSummary, error) {
		return h.svc.Summary(ctx, scope)
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, summary, &response.Meta{
		FromCache: result.FromCache,
		Stale:     result.Stale,
	})
}

func dashboardCacheKey(scope services.Scope) string {
	switch scope.Role {
	case models.RoleCompanyAdmin:
		return services.CachePrefixDashboard + "_c" + scope.CompanyID
	case models.RoleEmployee:
		return services.CachePrefixDashboard + "_u" + scope.UserID
	}
	return services.CachePrefixDashboard + "_all"
}
