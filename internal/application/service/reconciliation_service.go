package service

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// AdvanceDeficit is one advance's spend position: positive Deficit means the
// supervisor spent past the float.
type AdvanceDeficit struct {
	AdvanceID         string               `json:"advance_id"`
	FieldSupervisorID string               `json:"field_supervisor_id"`
	Status            entity.AdvanceStatus `json:"status"`
	AdvanceAmount     decimal.Decimal      `json:"advance_amount"`
	ApprovedSpend     decimal.Decimal      `json:"approved_spend"`
	Deficit           decimal.Decimal      `json:"deficit"`
}

// PartReconBucket classifies one part's issued-vs-installed position on a
// work order.
type PartReconBucket string

const (
	PartReconMatched            PartReconBucket = "matched"
	PartReconIssuedNotInstalled PartReconBucket = "issued_not_installed"
	PartReconInstalledNotIssued PartReconBucket = "installed_not_issued"
)

// WorkOrderPartRecon is one part's issued and installed totals for a work
// order.
type WorkOrderPartRecon struct {
	PartID       string          `json:"part_id"`
	IssuedQty    int             `json:"issued_qty"`
	InstalledQty int             `json:"installed_qty"`
	Bucket       PartReconBucket `json:"bucket"`
}

// WorkOrderPartsReport reconciles what left the warehouse for a work order
// against what was recorded as installed. Partial is true when installation
// tracking is unavailable and installed totals could not be computed.
type WorkOrderPartsReport struct {
	WorkOrderID string               `json:"work_order_id"`
	Parts       []WorkOrderPartRecon `json:"parts"`
	Partial     bool                 `json:"partial"`
}

// SupervisorLedger is one field supervisor's cash position across all their
// advances.
type SupervisorLedger struct {
	SupervisorID     string           `json:"supervisor_id"`
	TotalAdvanced    decimal.Decimal  `json:"total_advanced"`
	TotalApproved    decimal.Decimal  `json:"total_approved"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	Advances         []AdvanceDeficit `json:"advances"`
}

// ReconciliationService is the read-only reporting side: deficits, ledgers,
// and issued-vs-installed mismatches. It mutates nothing and tolerates
// missing optional tables by degrading rather than failing.
type ReconciliationService interface {
	AdvanceDeficits(ctx context.Context, actor entity.Actor, filter port.AdvanceFilter) ([]AdvanceDeficit, error)
	SupervisorLedger(ctx context.Context, actor entity.Actor, supervisorID string) (*SupervisorLedger, error)
	WorkOrderParts(ctx context.Context, actor entity.Actor, workOrderID string) (*WorkOrderPartsReport, error)
}

type reconciliationServiceImpl struct {
	advanceRepo      port.AdvanceRepository
	expenseRepo      port.ExpenseRepository
	issueRepo        port.IssueRepository
	installationRepo port.InstallationRepository
	capabilities     port.Capabilities
	logger           Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	advanceRepo port.AdvanceRepository,
	expenseRepo port.ExpenseRepository,
	issueRepo port.IssueRepository,
	installationRepo port.InstallationRepository,
	capabilities port.Capabilities,
	logger Logger,
) ReconciliationService {
	return &reconciliationServiceImpl{
		advanceRepo:      advanceRepo,
		expenseRepo:      expenseRepo,
		issueRepo:        issueRepo,
		installationRepo: installationRepo,
		capabilities:     capabilities,
		logger:           logger,
	}
}

// AdvanceDeficits computes approved spend against float for every matching
// advance.
func (s *reconciliationServiceImpl) AdvanceDeficits(ctx context.Context, actor entity.Actor, filter port.AdvanceFilter) ([]AdvanceDeficit, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can run reconciliation reports")
	}

	advances, err := s.advanceRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.deficitsFor(ctx, advances)
}

// SupervisorLedger aggregates one supervisor's advances, approved spend, and
// outstanding balance.
func (s *reconciliationServiceImpl) SupervisorLedger(ctx context.Context, actor entity.Actor, supervisorID string) (*SupervisorLedger, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isUUID(supervisorID) {
		return nil, apperr.Validation("invalid supervisor id")
	}
	if !actor.IsPrivileged() && actor.ID != supervisorID {
		return nil, apperr.Forbidden("forbidden")
	}

	advances, err := s.advanceRepo.List(ctx, port.AdvanceFilter{SupervisorID: &supervisorID})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	deficits, err := s.deficitsFor(ctx, advances)
	if err != nil {
		return nil, err
	}

	ledger := &SupervisorLedger{
		SupervisorID:     supervisorID,
		TotalAdvanced:    decimal.Zero,
		TotalApproved:    decimal.Zero,
		TotalOutstanding: decimal.Zero,
		Advances:         deficits,
	}
	for _, d := range deficits {
		ledger.TotalAdvanced = ledger.TotalAdvanced.Add(d.AdvanceAmount)
		ledger.TotalApproved = ledger.TotalApproved.Add(d.ApprovedSpend)
		if d.Status != entity.AdvanceClosed {
			ledger.TotalOutstanding = ledger.TotalOutstanding.Add(d.AdvanceAmount.Sub(d.ApprovedSpend))
		}
	}
	return ledger, nil
}

func (s *reconciliationServiceImpl) deficitsFor(ctx context.Context, advances []*entity.CashAdvance) ([]AdvanceDeficit, error) {
	if len(advances) == 0 {
		return []AdvanceDeficit{}, nil
	}
	ids := make([]string, 0, len(advances))
	for _, a := range advances {
		ids = append(ids, a.ID)
	}
	sums, err := s.expenseRepo.SumSettledByAdvanceIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	deficits := make([]AdvanceDeficit, 0, len(advances))
	for _, a := range advances {
		approved, ok := sums[a.ID]
		if !ok {
			approved = decimal.Zero
		}
		deficits = append(deficits, AdvanceDeficit{
			AdvanceID:         a.ID,
			FieldSupervisorID: a.FieldSupervisorID,
			Status:            a.Status,
			AdvanceAmount:     a.Amount,
			ApprovedSpend:     approved,
			Deficit:           approved.Sub(a.Amount),
		})
	}
	return deficits, nil
}

// WorkOrderParts reconciles issued against installed quantities per part. A
// deployment without installation tracking still gets the issued side, marked
// partial.
func (s *reconciliationServiceImpl) WorkOrderParts(ctx context.Context, actor entity.Actor, workOrderID string) (*WorkOrderPartsReport, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isUUID(workOrderID) {
		return nil, apperr.Validation("invalid work_order_id")
	}

	issued, err := s.issueRepo.PostedQtyByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	installed := map[string]int{}
	partial := !s.capabilities.Installations
	if s.capabilities.Installations {
		installed, err = s.installationRepo.InstalledQtyByWorkOrder(ctx, workOrderID)
		if err != nil {
			s.logger.Warn("Installed totals unavailable, reporting issued side only", "error", err, "work_order_id", workOrderID)
			installed = map[string]int{}
			partial = true
		}
	}

	partIDs := make(map[string]bool, len(issued)+len(installed))
	for p := range issued {
		partIDs[p] = true
	}
	for p := range installed {
		partIDs[p] = true
	}

	report := &WorkOrderPartsReport{WorkOrderID: workOrderID, Parts: []WorkOrderPartRecon{}, Partial: partial}
	for p := range partIDs {
		recon := WorkOrderPartRecon{
			PartID:       p,
			IssuedQty:    issued[p],
			InstalledQty: installed[p],
		}
		switch {
		case recon.IssuedQty == recon.InstalledQty:
			recon.Bucket = PartReconMatched
		case recon.IssuedQty > recon.InstalledQty:
			recon.Bucket = PartReconIssuedNotInstalled
		default:
			recon.Bucket = PartReconInstalledNotIssued
		}
		report.Parts = append(report.Parts, recon)
	}
	sort.Slice(report.Parts, func(i, j int) bool { return report.Parts[i].PartID < report.Parts[j].PartID })
	return report, nil
}
