package handlers

import (
	"github.com/gin-gonic/gin"

	"stocklot/internal/domain/reports"
	"stocklot/internal/infrastructure/http/v1/dto"
)

// ReportsHandler exposes costing views over the inventory ledger.
type ReportsHandler struct {
	*BaseHandler
	svc *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, svc *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, svc: svc}
}

// Valuation handles GET /reports/valuation.
func (h *ReportsHandler) Valuation(c *gin.Context) {
	v, err := h.svc.StockValuation(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromValuation(v))
}

// WeightedAverageCost handles GET /reports/weighted-average-cost/:productId.
func (h *ReportsHandler) WeightedAverageCost(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	w, err := h.svc.WeightedAverageCost(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromWeightedAverageCost(w))
}
