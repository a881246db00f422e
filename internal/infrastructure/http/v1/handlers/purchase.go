package handlers

import (
	"github.com/gin-gonic/gin"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/purchase"
	"stocklot/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler exposes purchase orders and goods receiving.
type PurchaseHandler struct {
	*BaseHandler
	svc *purchase.Service
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(base *BaseHandler, svc *purchase.Service) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, svc: svc}
}

// Create handles POST /purchases.
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd := purchase.CreateCommand{
		SupplierID: id.MustParse(req.SupplierID),
		BatchID:    id.MustParse(req.BatchID),
		Notes:      req.Notes,
		Items:      make([]purchase.ItemCommand, len(req.Items)),
	}
	if req.OrderDate != nil {
		cmd.OrderDate = *req.OrderDate
	}
	for i, item := range req.Items {
		cmd.Items[i] = purchase.ItemCommand{
			ProductID:    id.MustParse(item.ProductID),
			Quantity:     item.Quantity,
			UnitCost:     item.UnitCost,
			SellingPrice: item.SellingPrice,
			ExpiryDate:   item.ExpiryDate,
		}
	}

	created, err := h.svc.Create(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromPurchase(created))
}

// Receive handles POST /purchases/:id/receive.
func (h *PurchaseHandler) Receive(c *gin.Context) {
	purchaseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReceivePurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd := purchase.ReceiveCommand{
		PurchaseID:     purchaseID,
		Lines:          make([]purchase.ReceivedLine, len(req.Lines)),
		IdempotencyKey: h.IdempotencyKey(c),
	}
	for i, line := range req.Lines {
		cmd.Lines[i] = purchase.ReceivedLine{
			PurchaseItemID:   id.MustParse(line.PurchaseItemID),
			QuantityReceived: line.QuantityReceived,
		}
	}

	receipt, err := h.svc.Receive(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReceipt(receipt))
}

// Cancel handles POST /purchases/:id/cancel.
func (h *PurchaseHandler) Cancel(c *gin.Context) {
	purchaseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	cancelled, err := h.svc.Cancel(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPurchase(cancelled))
}

// Get handles GET /purchases/:id.
func (h *PurchaseHandler) Get(c *gin.Context) {
	purchaseID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.Get(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}
	items, err := h.svc.GetItems(c.Request.Context(), purchaseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.PurchaseDetailResponse{
		PurchaseResponse: dto.FromPurchase(p),
		Items:            dto.FromPurchaseItems(items),
	})
}

// List handles GET /purchases.
func (h *PurchaseHandler) List(c *gin.Context) {
	var query dto.PurchaseListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := purchase.Filter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		st := purchase.Status(query.Status)
		filter.Status = &st
	}
	if query.SupplierID != "" {
		sid := id.MustParse(query.SupplierID)
		filter.SupplierID = &sid
	}

	purchases, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.PurchaseResponse, len(purchases))
	for i := range purchases {
		items[i] = dto.FromPurchase(&purchases[i])
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: query.Limit, Offset: query.Offset})
}
