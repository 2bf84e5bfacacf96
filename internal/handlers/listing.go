package handlers

import (
	"github.com/workstead/workstead/internal/listing"
	"github.com/workstead/workstead/internal/query"
	"github.com/workstead/workstead/pkg/response"
)

// listPayload is the cached shape of every paginated list, so a cache hit can
// restore both the rows and the total without re-counting.
type listPayload[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func listMeta(params listing.Params, total int64, result query.Result) *response.Meta {
	meta := response.NewListMeta(params.Page, params.PageSize, total)
	meta.FromCache = result.FromCache
	meta.Stale = result.Stale
	return meta
}
