package handlers

import (
	"github.com/gin-gonic/gin"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/adjustment"
	"stocklot/internal/infrastructure/http/v1/dto"
)

// AdjustmentHandler exposes operator stock corrections.
type AdjustmentHandler struct {
	*BaseHandler
	svc *adjustment.Service
}

// NewAdjustmentHandler creates a new adjustment handler.
func NewAdjustmentHandler(base *BaseHandler, svc *adjustment.Service) *AdjustmentHandler {
	return &AdjustmentHandler{BaseHandler: base, svc: svc}
}

// Adjust handles POST /inventory/adjust.
func (h *AdjustmentHandler) Adjust(c *gin.Context) {
	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.Adjust(c.Request.Context(), adjustment.Command{
		ProductID: id.MustParse(req.ProductID),
		Direction: adjustment.Direction(req.Direction),
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Notes:     req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, adjustResponse(result))
}

// OpeningBalance handles POST /inventory/opening-balance.
func (h *AdjustmentHandler) OpeningBalance(c *gin.Context) {
	var req dto.OpeningBalanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.svc.ImportOpeningBalance(c.Request.Context(), adjustment.OpeningBalanceCommand{
		ProductID:      id.MustParse(req.ProductID),
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		IdempotencyKey: h.IdempotencyKey(c),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, adjustResponse(result))
}

func adjustResponse(r *adjustment.Result) dto.AdjustStockResponse {
	resp := dto.AdjustStockResponse{
		AdjustmentID: r.AdjustmentID.String(),
		Direction:    string(r.Direction),
		Quantity:     r.Quantity,
		Value:        r.Value,
		Allocations:  dto.FromAllocations(r.Allocations),
	}
	if r.TransactionID != nil {
		s := r.TransactionID.String()
		resp.TransactionID = &s
	}
	return resp
}
