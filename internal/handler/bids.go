package handler

import (
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"launchpad/internal/repository"
	"launchpad/internal/service"
)

type BidHandler struct {
	Repo   repository.Repository
	Intake *service.BidIntakeService
}

func (h *BidHandler) Register(r *gin.Engine) {
	l := r.Group("/api/v1/launches")
	l.POST("/:id/bids", h.place)
	l.GET("/:id/bids", h.listByLaunch)

	b := r.Group("/api/v1/bids")
	b.GET("/:id", h.get)
	b.POST("/:id/reveal", h.reveal)
	b.POST("/:id/cancel", h.cancel)
	b.GET("/:id/orders", h.listOrders)
}

type signedOrderRequest struct {
	OrderHash    string    `json:"order_hash" binding:"required"`
	MakerAsset   string    `json:"maker_asset"`
	TakerAsset   string    `json:"taker_asset"`
	MakingAmount string    `json:"making_amount" binding:"required"`
	TakingAmount string    `json:"taking_amount" binding:"required"`
	Salt         string    `json:"salt" binding:"required"`
	Expiration   time.Time `json:"expiration" binding:"required"`
	Signature    string    `json:"signature" binding:"required"`
}

type placeBidRequest struct {
	WalletAddress string              `json:"wallet_address" binding:"required"`
	Price         string              `json:"price"`
	Quantity      int64               `json:"quantity"`
	Nonce         string              `json:"nonce"`
	Commitment    string              `json:"commitment"`
	SignedOrder   *signedOrderRequest `json:"signed_order"`
}

// @Summary Place an open or sealed bid
// @Tags bids
// @Accept json
// @Produce json
// @Param id path string true "launch id"
// @Param request body placeBidRequest true "bid terms or commitment"
// @Success 200 {object} apiResponse
// @Router /api/v1/launches/{id}/bids [post]
func (h *BidHandler) place(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusServiceUnavailable, "intake unavailable", nil)
		return
	}
	launchID := strings.TrimSpace(c.Param("id"))
	if launchID == "" {
		Error(c, http.StatusBadRequest, "invalid launch id", nil)
		return
	}
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	params := service.PlaceBidParams{
		LaunchID:      launchID,
		WalletAddress: req.WalletAddress,
		Commitment:    req.Commitment,
	}
	if strings.TrimSpace(req.Commitment) == "" {
		price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
		if err != nil {
			Error(c, http.StatusBadRequest, "price is malformed", nil)
			return
		}
		nonce, ok := new(big.Int).SetString(strings.TrimSpace(req.Nonce), 10)
		if !ok {
			Error(c, http.StatusBadRequest, "nonce is malformed", nil)
			return
		}
		params.Price = price
		params.Quantity = req.Quantity
		params.Nonce = nonce
	}
	if req.SignedOrder != nil {
		params.SignedOrder = &service.SignedOrderParams{
			OrderHash:    req.SignedOrder.OrderHash,
			MakerAsset:   req.SignedOrder.MakerAsset,
			TakerAsset:   req.SignedOrder.TakerAsset,
			MakingAmount: req.SignedOrder.MakingAmount,
			TakingAmount: req.SignedOrder.TakingAmount,
			Salt:         req.SignedOrder.Salt,
			Expiration:   req.SignedOrder.Expiration,
			Signature:    req.SignedOrder.Signature,
		}
	}
	item, err := h.Intake.PlaceBid(c.Request.Context(), params)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary List bids for a launch
// @Tags bids
// @Produce json
// @Param id path string true "launch id"
// @Param status query string false "filter by status"
// @Param wallet query string false "filter by wallet"
// @Success 200 {object} apiResponse
// @Router /api/v1/launches/{id}/bids [get]
func (h *BidHandler) listByLaunch(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	launchID := strings.TrimSpace(c.Param("id"))
	if launchID == "" {
		Error(c, http.StatusBadRequest, "invalid launch id", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var status *string
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		status = &v
	}
	var wallet *string
	if v := strings.TrimSpace(c.Query("wallet")); v != "" {
		wallet = &v
	}
	params := repository.ListBidsParams{
		Limit:    limit,
		Offset:   offset,
		LaunchID: &launchID,
		Status:   status,
		Wallet:   wallet,
		OrderBy:  "created_at",
		Asc:      boolPtr(true),
	}
	items, err := h.Repo.ListBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountBids(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get one bid
// @Tags bids
// @Produce json
// @Param id path int true "bid id"
// @Success 200 {object} apiResponse
// @Router /api/v1/bids/{id} [get]
func (h *BidHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetBidByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "bid not found", nil)
		return
	}
	Ok(c, item, nil)
}

type revealBidRequest struct {
	Price    string `json:"price" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required"`
	Nonce    string `json:"nonce" binding:"required"`
}

// @Summary Reveal a sealed bid
// @Tags bids
// @Accept json
// @Produce json
// @Param id path int true "bid id"
// @Param request body revealBidRequest true "revealed terms"
// @Success 200 {object} apiResponse
// @Router /api/v1/bids/{id}/reveal [post]
func (h *BidHandler) reveal(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusServiceUnavailable, "intake unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req revealBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		Error(c, http.StatusBadRequest, "price is malformed", nil)
		return
	}
	nonce, ok := new(big.Int).SetString(strings.TrimSpace(req.Nonce), 10)
	if !ok {
		Error(c, http.StatusBadRequest, "nonce is malformed", nil)
		return
	}
	item, err := h.Intake.RevealBid(c.Request.Context(), service.RevealBidParams{
		BidID:    id,
		Price:    price,
		Quantity: req.Quantity,
		Nonce:    nonce,
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Cancel a bid before clearing
// @Tags bids
// @Produce json
// @Param id path int true "bid id"
// @Success 200 {object} apiResponse
// @Router /api/v1/bids/{id}/cancel [post]
func (h *BidHandler) cancel(c *gin.Context) {
	if h.Intake == nil {
		Error(c, http.StatusServiceUnavailable, "intake unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Intake.CancelBid(c.Request.Context(), id); err != nil {
		serviceError(c, err)
		return
	}
	item, _ := h.Repo.GetBidByID(c.Request.Context(), id)
	Ok(c, item, nil)
}

// @Summary List signed orders attached to a bid
// @Tags bids
// @Produce json
// @Param id path int true "bid id"
// @Success 200 {object} apiResponse
// @Router /api/v1/bids/{id}/orders [get]
func (h *BidHandler) listOrders(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Repo.ListLimitOrdersByBidID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}
