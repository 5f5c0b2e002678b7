package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"predmarket/internal/service"
)

type TradeHandler struct {
	Trading *service.TradingService
}

func (h *TradeHandler) Register(r *gin.Engine) {
	r.POST("/api/trade", h.trade)
	r.GET("/api/crypto/price", h.price)
}

type tradeRequest struct {
	UserID      string `json:"userId"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	AmountToken string `json:"amountToken"`
}

// @Summary Trade demo tokens against the USDC balance
// @Tags trade
// @Accept json
// @Produce json
// @Param body body tradeRequest true "trade"
// @Success 200 {object} service.TradeResult
// @Router /api/trade [post]
func (h *TradeHandler) trade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.UserID == "" || req.Symbol == "" || req.Side == "" || req.AmountToken == "" {
		Error(c, http.StatusBadRequest, "missing trade details", nil)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.AmountToken))
	if err != nil {
		Error(c, http.StatusBadRequest, "amountToken must be a decimal string", nil)
		return
	}
	result, err := h.Trading.Trade(c.Request.Context(), req.UserID, req.Symbol, req.Side, amount)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, result, nil)
}

// @Summary Static USD quote for a symbol
// @Tags trade
// @Produce json
// @Param symbol query string true "symbol"
// @Success 200 {object} map[string]string
// @Router /api/crypto/price [get]
func (h *TradeHandler) price(c *gin.Context) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		Error(c, http.StatusBadRequest, "symbol required", nil)
		return
	}
	Ok(c, gin.H{
		"symbol":   strings.ToLower(symbol),
		"priceUsd": h.Trading.Quote(symbol),
	}, nil)
}
