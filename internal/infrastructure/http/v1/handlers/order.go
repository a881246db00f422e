package handlers

import (
	"github.com/gin-gonic/gin"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/order"
	"stocklot/internal/infrastructure/http/v1/dto"
)

// OrderHandler exposes sales orders and the fulfillment allocator.
type OrderHandler struct {
	*BaseHandler
	svc *order.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, svc *order.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: base, svc: svc}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd := order.CreateCommand{
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
		Items:        make([]order.ItemCommand, len(req.Items)),
	}
	if req.OrderDate != nil {
		cmd.OrderDate = *req.OrderDate
	}
	for i, item := range req.Items {
		cmd.Items[i] = order.ItemCommand{
			ProductID: id.MustParse(item.ProductID),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	created, err := h.svc.Create(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromOrder(created))
}

// Fulfill handles POST /orders/:id/fulfill.
func (h *OrderHandler) Fulfill(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.Fulfill(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromFulfillment(result))
}

// Reverse handles POST /orders/:id/reverse.
func (h *OrderHandler) Reverse(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.svc.ReverseFulfillment(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReversal(result))
}

// Advance handles POST /orders/:id/status.
func (h *OrderHandler) Advance(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdvanceOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.svc.Advance(c.Request.Context(), orderID, order.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(updated))
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	o, err := h.svc.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	items, err := h.svc.GetItems(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.OrderDetailResponse{
		OrderResponse: dto.FromOrder(o),
		Items:         dto.FromOrderItems(items),
	})
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	var query dto.OrderListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := order.Filter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		st := order.Status(query.Status)
		filter.Status = &st
	}

	orders, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.OrderResponse, len(orders))
	for i := range orders {
		items[i] = dto.FromOrder(&orders[i])
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: query.Limit, Offset: query.Offset})
}
