package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"launchpad/internal/repository"
)

type SettlementHandler struct {
	Repo repository.Repository
}

func (h *SettlementHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/launches/:id/settlement", h.getByLaunch)
	r.GET("/api/v1/settlements", h.list)
	r.GET("/api/v1/batches", h.listBatches)
}

// @Summary Get the settlement for a launch
// @Tags settlements
// @Produce json
// @Param id path string true "launch id"
// @Success 200 {object} apiResponse
// @Router /api/v1/launches/{id}/settlement [get]
func (h *SettlementHandler) getByLaunch(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetAuctionSettlementByLaunchID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "settlement not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List auction settlements
// @Tags settlements
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/settlements [get]
func (h *SettlementHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListSettlementsParams{
		Limit:   limit,
		Offset:  offset,
		OrderBy: "settled_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListAuctionSettlements(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}

// @Summary List finalized execution batches
// @Tags settlements
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/batches [get]
func (h *SettlementHandler) listBatches(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListSettlementsParams{
		Limit:   limit,
		Offset:  offset,
		OrderBy: "completed_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListExecutionBatches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}
