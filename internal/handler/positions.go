package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"predmarket/internal/service"
)

type PositionHandler struct {
	Markets *service.MarketService
}

func (h *PositionHandler) Register(r *gin.Engine) {
	r.POST("/api/positions", h.create)
	r.GET("/api/positions/:address", h.listByUser)
}

type createPositionRequest struct {
	MarketID    uint64 `json:"marketId"`
	OptionID    uint64 `json:"optionId"`
	Amount      string `json:"amount"`
	UserAddress string `json:"userAddress"`
}

// @Summary Stake on a market option
// @Tags positions
// @Accept json
// @Produce json
// @Param body body createPositionRequest true "position"
// @Success 201 {object} models.Position
// @Router /api/positions [post]
func (h *PositionHandler) create(c *gin.Context) {
	var req createPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.MarketID == 0 || req.OptionID == 0 {
		Error(c, http.StatusBadRequest, "marketId and optionId required", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		Error(c, http.StatusBadRequest, "amount must be a decimal string", nil)
		return
	}
	position, err := h.Markets.CreatePosition(c.Request.Context(), req.MarketID, req.OptionID, strings.TrimSpace(req.UserAddress), amount)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, position)
}

// @Summary List a user's positions
// @Tags positions
// @Produce json
// @Param address path string true "user address"
// @Success 200 {array} models.Position
// @Router /api/positions/{address} [get]
func (h *PositionHandler) listByUser(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	positions, err := h.Markets.ListUserPositions(c.Request.Context(), address)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, positions, map[string]any{"count": len(positions)})
}
