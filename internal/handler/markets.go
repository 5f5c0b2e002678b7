package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"predmarket/internal/repository"
	"predmarket/internal/service"
)

type MarketHandler struct {
	Markets    *service.MarketService
	Settlement *service.SettlementService
}

func (h *MarketHandler) Register(r *gin.Engine) {
	group := r.Group("/api/markets")
	group.POST("/create", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.remove)
	group.POST("/:id/resolve", h.resolve)
	group.POST("/:id/claim", h.claim)
}

type createMarketRequest struct {
	Question    string   `json:"question"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	BannerURL   *string  `json:"bannerUrl"`
	Options     []string `json:"options"`
	CloseTime   string   `json:"closeTime"`
	CreatorID   string   `json:"creatorId"`
}

// @Summary Create a market
// @Tags markets
// @Accept json
// @Produce json
// @Param body body createMarketRequest true "market"
// @Success 201 {object} service.MarketDetail
// @Router /api/markets/create [post]
func (h *MarketHandler) create(c *gin.Context) {
	var req createMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	closeTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.CloseTime))
	if err != nil {
		Error(c, http.StatusBadRequest, "closeTime must be a valid RFC3339 timestamp", nil)
		return
	}
	detail, err := h.Markets.CreateMarket(c.Request.Context(), service.CreateMarketParams{
		Question:    req.Question,
		Description: req.Description,
		Category:    req.Category,
		BannerURL:   req.BannerURL,
		Options:     req.Options,
		CloseTime:   closeTime,
		CreatorID:   req.CreatorID,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, detail)
}

// @Summary List markets
// @Tags markets
// @Produce json
// @Param status query string false "status filter"
// @Param category query string false "category filter"
// @Success 200 {array} service.MarketDetail
// @Router /api/markets [get]
func (h *MarketHandler) list(c *gin.Context) {
	params := repository.ListMarketsParams{}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		params.Status = &v
	}
	if v := strings.TrimSpace(c.Query("category")); v != "" {
		params.Category = &v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		params.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil {
		params.Offset = v
	}
	details, err := h.Markets.ListMarkets(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, details, map[string]any{"count": len(details)})
}

// @Summary Get a market
// @Tags markets
// @Produce json
// @Param id path int true "market id"
// @Success 200 {object} service.MarketDetail
// @Router /api/markets/{id} [get]
func (h *MarketHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	detail, err := h.Markets.GetMarket(c.Request.Context(), id)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, detail, nil)
}

// @Summary Delete a market
// @Tags markets
// @Param id path int true "market id"
// @Success 200 {object} map[string]bool
// @Router /api/markets/{id} [delete]
func (h *MarketHandler) remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	requester := callerID(c)
	if requester == "" {
		Error(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}
	if err := h.Markets.DeleteMarket(c.Request.Context(), id, requester); err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"ok": true}, nil)
}

type resolveMarketRequest struct {
	WinningOptionID uint64 `json:"winningOptionId"`
}

// @Summary Resolve a market
// @Tags markets
// @Accept json
// @Produce json
// @Param id path int true "market id"
// @Param body body resolveMarketRequest true "winner"
// @Success 200 {object} models.Market
// @Router /api/markets/{id}/resolve [post]
func (h *MarketHandler) resolve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req resolveMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	market, err := h.Settlement.Resolve(c.Request.Context(), id, req.WinningOptionID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, market, nil)
}

type claimRequest struct {
	UserAddress string `json:"userAddress"`
}

// @Summary Claim payout on a resolved market
// @Tags markets
// @Accept json
// @Produce json
// @Param id path int true "market id"
// @Param body body claimRequest true "claimant"
// @Success 200 {object} map[string]string
// @Router /api/markets/{id}/claim [post]
func (h *MarketHandler) claim(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserAddress) == "" {
		Error(c, http.StatusBadRequest, "userAddress required", nil)
		return
	}
	payout, err := h.Settlement.Claim(c.Request.Context(), id, strings.TrimSpace(req.UserAddress))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"payout": payout.StringFixed(6)}, nil)
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}
