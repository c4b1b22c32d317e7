package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/service"
)

// defaultTopUpMethod labels top-ups posted without a payment method.
const defaultTopUpMethod = "manual"

// CreditHandler serves the credit wallet.
type CreditHandler struct {
	Ledger *service.Ledger
}

func NewCreditHandler(l *service.Ledger) *CreditHandler { return &CreditHandler{Ledger: l} }

type topUpReq struct {
	UserID string `json:"userId"`
	Amount int    `json:"amount"`
	Method string `json:"method"`
}

// Balance handles GET /api/credits.
func (h *CreditHandler) Balance(c echo.Context) error {
	uid, err := targetUser(c, c.QueryParam("userId"))
	if err != nil {
		return respondError(c, err, "Failed to fetch credit balance")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	bal, err := h.Ledger.Balance(ctx, uid)
	if err != nil {
		return respondError(c, err, "Failed to fetch credit balance")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "balance": bal})
}

// TopUp handles POST /api/credits.
func (h *CreditHandler) TopUp(c echo.Context) error {
	var req topUpReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Amount <= 0 {
		return badRequest(c, "Valid user ID and amount are required")
	}
	uid, err := targetUser(c, req.UserID)
	if err != nil {
		return respondError(c, err, "Failed to top up credits")
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		method = defaultTopUpMethod
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	bal, err := h.Ledger.TopUp(ctx, uid, req.Amount, method)
	if err != nil {
		return respondError(c, err, "Failed to top up credits")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"newBalance": bal,
		"message":    fmt.Sprintf("Successfully added %d credits", req.Amount),
	})
}

// Transactions handles GET /api/credits/transactions?limit=.
func (h *CreditHandler) Transactions(c echo.Context) error {
	uid, err := targetUser(c, c.QueryParam("userId"))
	if err != nil {
		return respondError(c, err, "Failed to fetch credit transactions")
	}
	limit := service.DefaultTransactionLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = min(n, service.DefaultTransactionLimit)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	out := []model.CreditTransaction{}
	for e, err := range h.Ledger.Transactions(ctx, uid, limit) {
		if err != nil {
			return respondError(c, err, "Failed to fetch credit transactions")
		}
		out = append(out, e)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "transactions": out, "count": len(out)})
}
