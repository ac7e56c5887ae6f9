package http

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/application/service"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// CreateRequestRequest is the payload for a new inventory request
type CreateRequestRequest struct {
	WarehouseID string             `json:"warehouse_id" binding:"required"`
	WorkOrderID *string            `json:"work_order_id,omitempty"`
	Lines       []RequestLineInput `json:"lines" binding:"required"`
	Notes       *string            `json:"notes,omitempty"`
}

// RequestLineInput is one requested part with quantity
type RequestLineInput struct {
	PartID    string  `json:"part_id" binding:"required"`
	NeededQty int     `json:"needed_qty" binding:"required"`
	Notes     *string `json:"notes,omitempty"`
}

// CreateIssueRequest is the payload for a new issue draft
type CreateIssueRequest struct {
	WarehouseID string           `json:"warehouse_id" binding:"required"`
	WorkOrderID string           `json:"work_order_id" binding:"required"`
	RequestID   *string          `json:"request_id,omitempty"`
	Lines       []IssueLineInput `json:"lines" binding:"required"`
	Reason      *string          `json:"reason,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// IssueLineInput is one stock unit leaving the warehouse
type IssueLineInput struct {
	PartID     string           `json:"part_id" binding:"required"`
	PartItemID string           `json:"part_item_id" binding:"required"`
	Qty        int              `json:"qty" binding:"required"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
}

// AddInstallationsRequest is the payload for recording installed parts
type AddInstallationsRequest struct {
	Items []InstallationItemInput `json:"items" binding:"required"`
}

// InstallationItemInput is one installed part, serial-tracked or bulk
type InstallationItemInput struct {
	PartID       string  `json:"part_id" binding:"required"`
	PartItemID   *string `json:"part_item_id,omitempty"`
	QtyInstalled int     `json:"qty_installed" binding:"required"`
	Odometer     *int64  `json:"odometer,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// CreateRequest handles POST /api/inventory/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var req CreateRequestRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lines := make([]service.RequestLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.RequestLineInput{
			PartID:    l.PartID,
			NeededQty: l.NeededQty,
			Notes:     l.Notes,
		})
	}

	request, err := h.services.Request.Create(c.Request.Context(), actorFrom(c), req.WarehouseID, req.WorkOrderID, lines, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, request)
}

// ListRequests handles GET /api/inventory/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	filter := port.RequestFilter{}
	if v := c.Query("status"); v != "" {
		status := entity.RequestStatus(v)
		filter.Status = &status
	}
	if v := c.Query("warehouse_id"); v != "" {
		filter.WarehouseID = &v
	}
	if v := c.Query("work_order_id"); v != "" {
		filter.WorkOrderID = &v
	}

	requests, err := h.services.Request.List(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, requests)
}

// GetRequest handles GET /api/inventory/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	request, err := h.services.Request.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, request)
}

// RequestReservations handles GET /api/inventory/requests/:id/reservations
func (h *Handlers) RequestReservations(c *gin.Context) {
	reservations, err := h.services.Request.Reservations(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, reservations)
}

// ApproveRequest handles POST /api/inventory/requests/:id/approve
func (h *Handlers) ApproveRequest(c *gin.Context) {
	request, err := h.services.Request.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, request)
}

// UnreserveRequest handles POST /api/inventory/requests/:id/unreserve
func (h *Handlers) UnreserveRequest(c *gin.Context) {
	request, err := h.services.Request.Unreserve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, request)
}

// RejectRequest handles POST /api/inventory/requests/:id/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	var req ReasonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	request, err := h.services.Request.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, request)
}

// CreateIssueDraft handles POST /api/inventory/issues
func (h *Handlers) CreateIssueDraft(c *gin.Context) {
	var req CreateIssueRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lines := make([]service.IssueLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.IssueLineInput{
			PartID:     l.PartID,
			PartItemID: l.PartItemID,
			Qty:        l.Qty,
			UnitCost:   l.UnitCost,
			Notes:      l.Notes,
		})
	}

	issue, err := h.services.Issue.CreateDraft(c.Request.Context(), actorFrom(c), service.CreateIssueInput{
		WarehouseID: req.WarehouseID,
		WorkOrderID: req.WorkOrderID,
		RequestID:   req.RequestID,
		Lines:       lines,
		Reason:      req.Reason,
		Notes:       req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, issue)
}

// ListIssues handles GET /api/inventory/issues
func (h *Handlers) ListIssues(c *gin.Context) {
	filter := port.IssueFilter{}
	if v := c.Query("status"); v != "" {
		status := entity.IssueStatus(v)
		filter.Status = &status
	}
	if v := c.Query("warehouse_id"); v != "" {
		filter.WarehouseID = &v
	}
	if v := c.Query("request_id"); v != "" {
		filter.RequestID = &v
	}
	if v := c.Query("work_order_id"); v != "" {
		filter.WorkOrderID = &v
	}

	issues, err := h.services.Issue.List(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, issues)
}

// GetIssue handles GET /api/inventory/issues/:id
func (h *Handlers) GetIssue(c *gin.Context) {
	issue, err := h.services.Issue.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, issue)
}

// PostIssue handles POST /api/inventory/issues/:id/post
func (h *Handlers) PostIssue(c *gin.Context) {
	issue, err := h.services.Issue.Post(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, issue)
}

// AddInstallations handles POST /api/work-orders/:id/installations
func (h *Handlers) AddInstallations(c *gin.Context) {
	var req AddInstallationsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	items := make([]service.InstallationItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.InstallationItemInput{
			PartID:       it.PartID,
			PartItemID:   it.PartItemID,
			QtyInstalled: it.QtyInstalled,
			Odometer:     it.Odometer,
			Notes:        it.Notes,
		})
	}

	installations, err := h.services.Installation.Add(c.Request.Context(), actorFrom(c), c.Param("id"), items)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, installations)
}

// ListInstallations handles GET /api/work-orders/:id/installations
func (h *Handlers) ListInstallations(c *gin.Context) {
	installations, err := h.services.Installation.ListByWorkOrder(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, installations)
}

// WorkOrderParts handles GET /api/work-orders/:id/parts-reconciliation
func (h *Handlers) WorkOrderParts(c *gin.Context) {
	report, err := h.services.Reconciliation.WorkOrderParts(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, report)
}
