package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"launchpad/internal/repository"
	"launchpad/internal/service"
)

type LaunchHandler struct {
	Repo     repository.Repository
	Launches *service.LaunchService
	Clearing *service.ClearingService
}

func (h *LaunchHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/launches")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/clear", h.clear)
}

type createLaunchRequest struct {
	TokenName                string    `json:"token_name" binding:"required"`
	TokenSymbol              string    `json:"token_symbol" binding:"required"`
	TotalSupply              string    `json:"total_supply" binding:"required"`
	TargetAllocation         int64     `json:"target_allocation" binding:"required"`
	EndTime                  time.Time `json:"end_time" binding:"required"`
	TokenAddress             string    `json:"token_address"`
	ChainID                  int64     `json:"chain_id"`
	AuctionControllerAddress string    `json:"auction_controller_address"`
}

// @Summary Create a token launch
// @Tags launches
// @Accept json
// @Produce json
// @Param request body createLaunchRequest true "launch parameters"
// @Success 200 {object} apiResponse
// @Router /api/v1/launches [post]
func (h *LaunchHandler) create(c *gin.Context) {
	if h.Launches == nil {
		Error(c, http.StatusServiceUnavailable, "launch service unavailable", nil)
		return
	}
	var req createLaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item, err := h.Launches.CreateLaunch(c.Request.Context(), service.CreateLaunchParams{
		TokenName:                req.TokenName,
		TokenSymbol:              req.TokenSymbol,
		TotalSupply:              req.TotalSupply,
		TargetAllocation:         req.TargetAllocation,
		EndTime:                  req.EndTime,
		TokenAddress:             req.TokenAddress,
		ChainID:                  req.ChainID,
		AuctionControllerAddress: req.AuctionControllerAddress,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary List launches
// @Tags launches
// @Produce json
// @Param status query string false "filter by status"
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/launches [get]
func (h *LaunchHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var status *string
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	params := repository.ListLaunchesParams{
		Limit:   limit,
		Offset:  offset,
		Status:  status,
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListLaunches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountLaunches(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get one launch
// @Tags launches
// @Produce json
// @Param id path string true "launch id"
// @Success 200 {object} apiResponse
// @Router /api/v1/launches/{id} [get]
func (h *LaunchHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetLaunchByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "launch not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Trigger clearing for a launch
// @Tags launches
// @Produce json
// @Param id path string true "launch id"
// @Param force query bool false "clear before the end time"
// @Success 200 {object} apiResponse
// @Router /api/v1/launches/{id}/clear [post]
func (h *LaunchHandler) clear(c *gin.Context) {
	if h.Clearing == nil {
		Error(c, http.StatusServiceUnavailable, "clearing service unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	force := strings.EqualFold(strings.TrimSpace(c.Query("force")), "true")
	row, err := h.Clearing.ClearLaunch(c.Request.Context(), id, force)
	if err != nil {
		serviceError(c, err)
		return
	}
	if row == nil {
		// Already cleared, or the launch expired without fillable bids.
		launch, err := h.Repo.GetLaunchByID(c.Request.Context(), id)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		Ok(c, launch, nil)
		return
	}
	Ok(c, row, nil)
}
