package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"predmarket/internal/service"
)

type WalletHandler struct {
	Ledger *service.Ledger
}

func (h *WalletHandler) Register(r *gin.Engine) {
	r.GET("/api/wallet/me", h.me)
	r.POST("/api/wallet/faucet", h.faucet)
	r.POST("/api/auth/connect", h.connect)
	r.GET("/api/auth/me/:address", h.lookup)
}

// @Summary Wallet snapshot (balance + holdings)
// @Tags wallet
// @Produce json
// @Param userId query string false "user id (or X-User-Id header)"
// @Success 200 {object} service.WalletSnapshot
// @Router /api/wallet/me [get]
func (h *WalletHandler) me(c *gin.Context) {
	userID := callerID(c)
	if userID == "" {
		Error(c, http.StatusBadRequest, "userId required", nil)
		return
	}
	snapshot, err := h.Ledger.Wallet(c.Request.Context(), userID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, snapshot, nil)
}

type faucetRequest struct {
	UserID string  `json:"userId"`
	Amount *string `json:"amount"`
}

// @Summary Faucet test-funds credit
// @Tags wallet
// @Accept json
// @Produce json
// @Param body body faucetRequest true "faucet"
// @Success 200 {object} map[string]string
// @Router /api/wallet/faucet [post]
func (h *WalletHandler) faucet(c *gin.Context) {
	var req faucetRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.UserID) == "" {
		Error(c, http.StatusBadRequest, "userId required", nil)
		return
	}
	var amount *decimal.Decimal
	if req.Amount != nil && strings.TrimSpace(*req.Amount) != "" {
		v, err := decimal.NewFromString(strings.TrimSpace(*req.Amount))
		if err != nil {
			Error(c, http.StatusBadRequest, "amount must be a decimal string", nil)
			return
		}
		amount = &v
	}
	balance, err := h.Ledger.Faucet(c.Request.Context(), strings.TrimSpace(req.UserID), amount)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"balance": balance.StringFixed(6)}, nil)
}

type connectRequest struct {
	Address string `json:"address"`
}

// @Summary Connect (get-or-create user)
// @Tags wallet
// @Accept json
// @Produce json
// @Param body body connectRequest true "address"
// @Success 200 {object} models.User
// @Router /api/auth/connect [post]
func (h *WalletHandler) connect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	user, err := h.Ledger.GetOrCreateUser(c.Request.Context(), strings.TrimSpace(req.Address))
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, user, nil)
}

// @Summary Look up a user
// @Tags wallet
// @Produce json
// @Param address path string true "user address"
// @Success 200 {object} models.User
// @Router /api/auth/me/{address} [get]
func (h *WalletHandler) lookup(c *gin.Context) {
	user, err := h.Ledger.GetUser(c.Request.Context(), strings.TrimSpace(c.Param("address")))
	if err != nil {
		ServiceError(c, err)
		return
	}
	// The original contract returns null rather than 404 for unknown users.
	Ok(c, user, nil)
}
