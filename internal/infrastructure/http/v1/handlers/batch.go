package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/batch"
	"stocklot/internal/infrastructure/http/v1/dto"
)

// BatchHandler exposes the supplier-delivery batch registry.
type BatchHandler struct {
	*BaseHandler
	svc *batch.Service
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(base *BaseHandler, svc *batch.Service) *BatchHandler {
	return &BatchHandler{BaseHandler: base, svc: svc}
}

// Register handles POST /batches.
func (h *BatchHandler) Register(c *gin.Context) {
	var req dto.RegisterBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cmd := batch.RegisterCommand{
		BatchNumber: req.BatchNumber,
		Notes:       req.Notes,
	}
	if req.SupplierID != nil {
		sid := id.MustParse(*req.SupplierID)
		cmd.SupplierID = &sid
	}
	if req.ReceivedAt != nil {
		cmd.ReceivedAt = *req.ReceivedAt
	} else {
		cmd.ReceivedAt = time.Now().UTC()
	}

	created, err := h.svc.Register(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CreatedData(c, dto.FromBatch(created))
}

// Close handles POST /batches/:id/close.
func (h *BatchHandler) Close(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	closed, err := h.svc.Close(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(closed))
}

// Get handles GET /batches/:id.
func (h *BatchHandler) Get(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	b, err := h.svc.Get(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(b))
}

// List handles GET /batches.
func (h *BatchHandler) List(c *gin.Context) {
	var query dto.BatchListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := batch.Filter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		st := batch.Status(query.Status)
		filter.Status = &st
	}
	if query.SupplierID != "" {
		sid := id.MustParse(query.SupplierID)
		filter.SupplierID = &sid
	}

	batches, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.BatchResponse, len(batches))
	for i := range batches {
		items[i] = dto.FromBatch(&batches[i])
	}
	h.OK(c, dto.ListResponse{Items: items, Limit: query.Limit, Offset: query.Offset})
}
