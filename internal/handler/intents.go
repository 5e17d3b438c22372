package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"launchpad/internal/repository"
	"launchpad/internal/service"
)

type IntentHandler struct {
	Repo   repository.Repository
	Intake *service.BidIntakeService
}

func (h *IntentHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/intents")
	g.POST("", h.create)
	g.POST("/preview", h.preview)
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

type createIntentRequest struct {
	LaunchID              string `json:"launch_id" binding:"required"`
	Bidder                string `json:"bidder" binding:"required"`
	BidToken              string `json:"bid_token" binding:"required"`
	BidTokenSymbol        string `json:"bid_token_symbol"`
	BidAmount             string `json:"bid_amount" binding:"required"`
	BidTokenDecimals      int32  `json:"bid_token_decimals"`
	MaxAuctionTokens      string `json:"max_auction_tokens" binding:"required"`
	MaxEffectivePriceUSDC string `json:"max_effective_price_usdc" binding:"required"`
	ExpectedOutputAmount  string `json:"expected_output_amount"`
	Signature             string `json:"signature"`
}

func (r createIntentRequest) toParams() service.CreateIntentParams {
	return service.CreateIntentParams{
		LaunchID:              r.LaunchID,
		Bidder:                r.Bidder,
		BidToken:              r.BidToken,
		BidTokenSymbol:        r.BidTokenSymbol,
		BidAmount:             r.BidAmount,
		BidTokenDecimals:      r.BidTokenDecimals,
		MaxAuctionTokens:      r.MaxAuctionTokens,
		MaxEffectivePriceUSDC: r.MaxEffectivePriceUSDC,
		ExpectedOutputAmount:  r.ExpectedOutputAmount,
		Signature:             r.Signature,
	}
}

// @Summary Submit a signed cross-asset bid intent
// @Tags intents
// @Accept json
// @Produce json
// @Param request body createIntentRequest true "intent parameters with signature"
// @Success 200 {object} apiResponse
// @Router /api/v1/intents [post]
func (h *IntentHandler) create(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusServiceUnavailable, "intake unavailable", nil)
		return
	}
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if strings.TrimSpace(req.Signature) == "" {
		Error(c, http.StatusBadRequest, "signature is required", nil)
		return
	}
	item, err := h.Intake.CreateIntent(c.Request.Context(), req.toParams())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Build an intent without persisting it
// @Tags intents
// @Accept json
// @Produce json
// @Param request body createIntentRequest true "intent parameters, signature ignored"
// @Success 200 {object} apiResponse
// @Router /api/v1/intents/preview [post]
func (h *IntentHandler) preview(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusServiceUnavailable, "intake unavailable", nil)
		return
	}
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	preview, err := h.Intake.PreviewIntent(c.Request.Context(), req.toParams())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, preview, nil)
}

// @Summary List intents
// @Tags intents
// @Produce json
// @Param launch_id query string false "filter by launch"
// @Param status query string false "filter by settlement state"
// @Param wallet query string false "filter by wallet"
// @Success 200 {object} apiResponse
// @Router /api/v1/intents [get]
func (h *IntentHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListFusionBidsParams{
		Limit:   limit,
		Offset:  offset,
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	if v := strings.TrimSpace(c.Query("launch_id")); v != "" {
		params.LaunchID = &v
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		params.Status = &v
	}
	if v := strings.TrimSpace(c.Query("wallet")); v != "" {
		params.Wallet = &v
	}
	items, err := h.Repo.ListFusionBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountFusionBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get one intent by digest
// @Tags intents
// @Produce json
// @Param id path string true "intent digest"
// @Success 200 {object} apiResponse
// @Router /api/v1/intents/{id} [get]
func (h *IntentHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetFusionBidByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "intent not found", nil)
		return
	}
	Ok(c, item, nil)
}
