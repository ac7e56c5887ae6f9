package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/application/service"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// CreateAdvanceRequest is the payload for issuing a cash advance
type CreateAdvanceRequest struct {
	FieldSupervisorID string          `json:"field_supervisor_id" binding:"required"`
	Amount            decimal.Decimal `json:"amount" binding:"required"`
}

// CloseAdvanceRequest is the payload for settling a cash advance
type CloseAdvanceRequest struct {
	SettlementType string          `json:"settlement_type" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Reference      *string         `json:"reference,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
}

// CreateExpenseRequest is the payload for recording an expense
type CreateExpenseRequest struct {
	PaymentSource string          `json:"payment_source" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	ExpenseType   string          `json:"expense_type" binding:"required"`
	CashAdvanceID *string         `json:"cash_advance_id,omitempty"`
	TripID        *string         `json:"trip_id,omitempty"`
	VehicleID     *string         `json:"vehicle_id,omitempty"`
	WorkOrderID   *string         `json:"work_order_id,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	ReceiptURL    *string         `json:"receipt_url,omitempty"`

	VendorName   *string          `json:"vendor_name,omitempty"`
	InvoiceNo    *string          `json:"invoice_no,omitempty"`
	InvoiceDate  *time.Time       `json:"invoice_date,omitempty"`
	PaidMethod   *string          `json:"paid_method,omitempty"`
	PaymentRef   *string          `json:"payment_ref,omitempty"`
	VATAmount    *decimal.Decimal `json:"vat_amount,omitempty"`
	InvoiceTotal *decimal.Decimal `json:"invoice_total,omitempty"`
}

// ReasonRequest carries a required free-text reason
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// NotesRequest carries optional reviewer notes
type NotesRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// ExportReconciliationRequest selects which work orders get a
// parts-reconciliation sheet in the exported workbook
type ExportReconciliationRequest struct {
	WorkOrderIDs []string `json:"work_order_ids,omitempty"`
}

// ResolveAppealRequest is the payload for deciding an appealed expense
type ResolveAppealRequest struct {
	Decision string  `json:"decision" binding:"required"`
	Notes    *string `json:"notes,omitempty"`
}

// CreateAdvance handles POST /api/advances
func (h *Handlers) CreateAdvance(c *gin.Context) {
	var req CreateAdvanceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	advance, err := h.services.Advance.Create(c.Request.Context(), actorFrom(c), req.FieldSupervisorID, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, advance)
}

// ListAdvances handles GET /api/advances
func (h *Handlers) ListAdvances(c *gin.Context) {
	filter := advanceFilterFrom(c)
	advances, err := h.services.Advance.List(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, advances)
}

// AdvanceSummary handles GET /api/advances/summary
func (h *Handlers) AdvanceSummary(c *gin.Context) {
	summary, err := h.services.Advance.Summary(c.Request.Context(), actorFrom(c), advanceFilterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, summary)
}

// GetAdvance handles GET /api/advances/:id
func (h *Handlers) GetAdvance(c *gin.Context) {
	advance, err := h.services.Advance.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, advance)
}

// SubmitAdvanceForReview handles POST /api/advances/:id/submit-review
func (h *Handlers) SubmitAdvanceForReview(c *gin.Context) {
	advance, err := h.services.Advance.SubmitForReview(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, advance)
}

// CloseAdvance handles POST /api/advances/:id/close
func (h *Handlers) CloseAdvance(c *gin.Context) {
	var req CloseAdvanceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	advance, totals, err := h.services.Advance.Close(c.Request.Context(), actorFrom(c), c.Param("id"), service.CloseAdvanceInput{
		SettlementType: entity.SettlementType(req.SettlementType),
		Amount:         req.Amount,
		Reference:      req.Reference,
		Notes:          req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"advance": advance, "totals": totals})
}

// ReopenAdvance handles POST /api/advances/:id/reopen
func (h *Handlers) ReopenAdvance(c *gin.Context) {
	advance, err := h.services.Advance.Reopen(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, advance)
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	expense, err := h.services.Expense.Create(c.Request.Context(), actorFrom(c), service.CreateExpenseInput{
		PaymentSource: entity.PaymentSource(req.PaymentSource),
		Amount:        req.Amount,
		CashAdvanceID: req.CashAdvanceID,
		TripID:        req.TripID,
		VehicleID:     req.VehicleID,
		WorkOrderID:   req.WorkOrderID,
		ExpenseType:   req.ExpenseType,
		Notes:         req.Notes,
		ReceiptURL:    req.ReceiptURL,
		VendorName:    req.VendorName,
		InvoiceNo:     req.InvoiceNo,
		InvoiceDate:   req.InvoiceDate,
		PaidMethod:    req.PaidMethod,
		PaymentRef:    req.PaymentRef,
		VATAmount:     req.VATAmount,
		InvoiceTotal:  req.InvoiceTotal,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, expense)
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	expenses, err := h.services.Expense.List(c.Request.Context(), actorFrom(c), expenseFilterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, expenses)
}

// ExpenseSummary handles GET /api/expenses/summary
func (h *Handlers) ExpenseSummary(c *gin.Context) {
	summary, err := h.services.Expense.Summary(c.Request.Context(), actorFrom(c), expenseFilterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, summary)
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	expense, err := h.services.Expense.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, expense)
}

// ExpenseAuditTrail handles GET /api/expenses/:id/audit
func (h *Handlers) ExpenseAuditTrail(c *gin.Context) {
	trail, err := h.services.Expense.AuditTrail(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, trail)
}

// ApproveExpense handles POST /api/expenses/:id/approve
func (h *Handlers) ApproveExpense(c *gin.Context) {
	var req NotesRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	expense, err := h.services.Expense.Approve(c.Request.Context(), actorFrom(c), c.Param("id"), req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, expense)
}

// RejectExpense handles POST /api/expenses/:id/reject
func (h *Handlers) RejectExpense(c *gin.Context) {
	var req ReasonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	expense, err := h.services.Expense.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, expense)
}

// AppealExpense handles POST /api/expenses/:id/appeal
func (h *Handlers) AppealExpense(c *gin.Context) {
	var req ReasonRequest
	if !h.bindJSON(c, &req) {
		return
	}

	expense, err := h.services.Expense.Appeal(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, expense)
}

// ResolveExpenseAppeal handles POST /api/expenses/:id/resolve-appeal
func (h *Handlers) ResolveExpenseAppeal(c *gin.Context) {
	var req ResolveAppealRequest
	if !h.bindJSON(c, &req) {
		return
	}

	expense, err := h.services.Expense.ResolveAppeal(c.Request.Context(), actorFrom(c), c.Param("id"),
		service.AppealDecision(req.Decision), req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, expense)
}

// ReopenExpense handles POST /api/expenses/:id/reopen
func (h *Handlers) ReopenExpense(c *gin.Context) {
	expense, err := h.services.Expense.Reopen(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, expense)
}

// TripTotals handles GET /api/trips/:id/finance/totals
func (h *Handlers) TripTotals(c *gin.Context) {
	totals, err := h.services.TripFinance.Totals(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, totals)
}

// SubmitTripForReview handles POST /api/trips/:id/finance/submit-review
func (h *Handlers) SubmitTripForReview(c *gin.Context) {
	status, err := h.services.TripFinance.SubmitForReview(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"financial_status": status})
}

// CloseTripFinance handles POST /api/trips/:id/finance/close
func (h *Handlers) CloseTripFinance(c *gin.Context) {
	status, err := h.services.TripFinance.Close(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"financial_status": status})
}

// ReopenTripFinance handles POST /api/trips/:id/finance/reopen
func (h *Handlers) ReopenTripFinance(c *gin.Context) {
	status, err := h.services.TripFinance.Reopen(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"financial_status": status})
}

// AdvanceDeficits handles GET /api/reconciliation/deficits
func (h *Handlers) AdvanceDeficits(c *gin.Context) {
	deficits, err := h.services.Reconciliation.AdvanceDeficits(c.Request.Context(), actorFrom(c), advanceFilterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, deficits)
}

// SupervisorLedger handles GET /api/reconciliation/supervisors/:id
func (h *Handlers) SupervisorLedger(c *gin.Context) {
	ledger, err := h.services.Reconciliation.SupervisorLedger(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, ledger)
}

// ExportReconciliation handles POST /api/reconciliation/export. It writes an
// Excel workbook with the current advance deficits and, when work order ids
// are given, one parts-reconciliation sheet per work order.
func (h *Handlers) ExportReconciliation(c *gin.Context) {
	if h.services.Exporter == nil {
		h.respondError(c, apperr.Conflict("report export is not enabled in this deployment"))
		return
	}

	var req ExportReconciliationRequest
	if c.Request.ContentLength > 0 {
		if !h.bindJSON(c, &req) {
			return
		}
	}

	actor := actorFrom(c)
	ctx := c.Request.Context()

	deficits, err := h.services.Reconciliation.AdvanceDeficits(ctx, actor, advanceFilterFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	partsReports := make([]*service.WorkOrderPartsReport, 0, len(req.WorkOrderIDs))
	for _, workOrderID := range req.WorkOrderIDs {
		report, err := h.services.Reconciliation.WorkOrderParts(ctx, actor, workOrderID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		partsReports = append(partsReports, report)
	}

	path, err := h.services.Exporter.ExportDeficits(deficits, partsReports)
	if err != nil {
		h.logger.Error("Failed to export reconciliation workbook", "error", err)
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"path": path})
}

func advanceFilterFrom(c *gin.Context) port.AdvanceFilter {
	filter := port.AdvanceFilter{
		Search: c.Query("search"),
	}
	if v := c.Query("status"); v != "" {
		status := entity.AdvanceStatus(v)
		filter.Status = &status
	}
	if v := c.Query("supervisor_id"); v != "" {
		filter.SupervisorID = &v
	}
	filter.Limit, filter.Offset = pagination(c)
	return filter
}

func expenseFilterFrom(c *gin.Context) port.ExpenseFilter {
	filter := port.ExpenseFilter{
		Search: c.Query("search"),
	}
	if v := c.Query("status"); v != "" {
		status := entity.ApprovalStatus(v)
		filter.Status = &status
	}
	if v := c.Query("payment_source"); v != "" {
		source := entity.PaymentSource(v)
		filter.PaymentSource = &source
	}
	if v := c.Query("created_by"); v != "" {
		filter.CreatedBy = &v
	}
	if v := c.Query("advance_id"); v != "" {
		filter.AdvanceID = &v
	}
	if v := c.Query("trip_id"); v != "" {
		filter.TripID = &v
	}
	filter.Limit, filter.Offset = pagination(c)
	return filter
}
