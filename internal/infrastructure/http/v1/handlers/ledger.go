package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/ledger"
	"stocklot/internal/infrastructure/http/v1/dto"
)

// LedgerHandler exposes the signed transaction ledger.
type LedgerHandler struct {
	*BaseHandler
	svc *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, svc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, svc: svc}
}

// Post handles POST /transactions.
func (h *LedgerHandler) Post(c *gin.Context) {
	var req dto.PostTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd := ledger.PostCommand{
		Type:           ledger.TransactionType(req.Type),
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: h.IdempotencyKey(c),
	}
	if req.PaymentDate != nil {
		cmd.PaymentDate = *req.PaymentDate
	}
	if req.PaymentMethodID != nil {
		pmID := id.MustParse(*req.PaymentMethodID)
		cmd.PaymentMethodID = &pmID
	}

	posted, err := h.svc.Post(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromTransaction(posted))
}

// Void handles POST /transactions/:id/void.
func (h *LedgerHandler) Void(c *gin.Context) {
	txID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.VoidTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	voided, err := h.svc.Void(c.Request.Context(), txID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransaction(voided))
}

// Get handles GET /transactions/:id.
func (h *LedgerHandler) Get(c *gin.Context) {
	txID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	t, err := h.svc.Get(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromTransaction(t))
}

// List handles GET /transactions.
func (h *LedgerHandler) List(c *gin.Context) {
	var query dto.TransactionListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := ledger.Filter{
		FromDate: query.FromDate,
		ToDate:   query.ToDate,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	if query.Type != "" {
		typ := ledger.TransactionType(query.Type)
		filter.Type = &typ
	}
	if query.Status != "" {
		st := ledger.Status(query.Status)
		filter.Status = &st
	}

	transactions, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, len(transactions))
	for i := range transactions {
		items[i] = dto.FromTransaction(&transactions[i])
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: query.Limit, Offset: query.Offset})
}

// Balance handles GET /transactions/balance.
func (h *LedgerHandler) Balance(c *gin.Context) {
	var query dto.BalanceQuery
	if !h.BindQuery(c, &query) {
		return
	}

	asOf := time.Now().UTC()
	if query.AsOf != nil {
		asOf = *query.AsOf
	}
	var typ *ledger.TransactionType
	if query.Type != "" {
		t := ledger.TransactionType(query.Type)
		typ = &t
	}

	balance, err := h.svc.BalanceAsOf(c.Request.Context(), asOf, typ)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.BalanceResponse{AsOf: asOf, Balance: balance}
	if query.Type != "" {
		resp.Type = &query.Type
	}
	h.OK(c, resp)
}
