package handlers

import (
	"github.com/gin-gonic/gin"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/infrastructure/http/v1/dto"
)

// InventoryHandler exposes the FIFO inventory ledger read surface.
type InventoryHandler struct {
	*BaseHandler
	svc *inventory.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, svc *inventory.Service) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, svc: svc}
}

// AvailableQuantity handles GET /inventory/available/:productId.
func (h *InventoryHandler) AvailableQuantity(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	available, err := h.svc.AvailableQuantity(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AvailableQuantityResponse{
		ProductID: productID.String(),
		Available: available,
	})
}

// ListEntries handles GET /inventory/entries.
func (h *InventoryHandler) ListEntries(c *gin.Context) {
	var query dto.EntryListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := inventory.EntryFilter{
		ExcludeExhausted: query.ExcludeExhausted,
		Limit:            query.Limit,
		Offset:           query.Offset,
	}
	if query.ProductID != "" {
		pid := id.MustParse(query.ProductID)
		filter.ProductID = &pid
	}
	if query.BatchID != "" {
		bid := id.MustParse(query.BatchID)
		filter.BatchID = &bid
	}

	entries, err := h.svc.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = dto.FromEntry(e)
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: query.Limit, Offset: query.Offset})
}

// ListMovements handles GET /inventory/movements.
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var query dto.MovementListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := inventory.MovementFilter{
		FromDate: query.FromDate,
		ToDate:   query.ToDate,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	if query.ProductID != "" {
		pid := id.MustParse(query.ProductID)
		filter.ProductID = &pid
	}
	if query.EntryID != "" {
		eid := id.MustParse(query.EntryID)
		filter.EntryID = &eid
	}
	if query.Type != "" {
		mt := inventory.MovementType(query.Type)
		filter.Type = &mt
	}

	movements, err := h.svc.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.MovementResponse, len(movements))
	for i, m := range movements {
		items[i] = dto.FromMovement(m)
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: query.Limit, Offset: query.Offset})
}
